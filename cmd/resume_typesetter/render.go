package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/resume-typesetter/internal/observability"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/resume"
	"github.com/jonathan/resume-typesetter/internal/schemas"
	"github.com/jonathan/resume-typesetter/internal/types"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a submission JSON file to PDF",
	Long:  "Renders a submission file offline, without a database. Contact fields left empty stay empty since there is no stored profile to fall back to.",
	RunE:  runRender,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a submission JSON file",
	RunE:  runValidate,
}

var (
	renderInput    string
	renderOutput   string
	renderTemplate string
	renderSource   string
	validateInput  string
)

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "in", "i", "", "Path to submission JSON file (required)")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Path to output PDF file (required)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Template name (default resume.typ)")
	renderCmd.Flags().StringVar(&renderSource, "source", "", "Also write the filled Typst source to this path")

	if err := renderCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := renderCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to submission JSON file (required)")
	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(renderCmd, validateCmd)
}

// loadSubmission validates and decodes a submission file.
func loadSubmission(path string) (*types.Submission, error) {
	data, err := schemas.ValidateSubmissionFile(path)
	if err != nil {
		return nil, err
	}
	var sub types.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission JSON: %w", err)
	}
	sub.Normalize()
	return &sub, nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	sub, err := loadSubmission(validateInput)
	if err != nil {
		return err
	}
	if verbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintSubmission(sub)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid submission\n", validateInput)
	return nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	sub, err := loadSubmission(renderInput)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())
	if verbose {
		printer.PrintSubmission(sub)
	}

	assembler := resume.NewAssembler(rendering.NewTemplateSet(cfg.Render.TemplateDir), cfg.Render.StaticDir, logger)
	doc, err := assembler.Assemble(cmd.Context(), sub, nil, renderTemplate)
	if err != nil {
		return err
	}
	if renderSource != "" {
		if err := os.WriteFile(renderSource, []byte(doc.Source), 0o644); err != nil {
			return fmt.Errorf("failed to write Typst source: %w", err)
		}
	}

	compiler := rendering.NewCompiler(cfg.Render.TypstBin, cfg.Render.Timeout, cfg.Render.ScratchDir)
	pdf, err := compiler.Compile(cmd.Context(), doc)
	if err != nil {
		var compileErr *rendering.CompilationError
		if errors.As(err, &compileErr) && compileErr.Diagnostics != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), compileErr.Diagnostics)
		}
		return err
	}

	if dir := filepath.Dir(renderOutput); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(renderOutput, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	if verbose {
		printer.PrintRender(renderTemplate, renderOutput, len(pdf))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", renderOutput, len(pdf))
	}
	return nil
}
