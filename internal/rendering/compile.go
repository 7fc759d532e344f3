package rendering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCompileTimeout is the maximum time to wait for the Typst compiler
	DefaultCompileTimeout = 30 * time.Second

	// DefaultBinary is the compiler executable looked up in PATH
	DefaultBinary = "typst"

	sourceFileName = "main.typ"
	outputFileName = "main.pdf"
)

// Document is a filled Typst source plus the files it references.
type Document struct {
	Source string
	// Assets are written into the scratch directory under their map key.
	Assets map[string][]byte
	// AssetFiles are copied into the scratch directory by base name.
	// Paths that do not exist are skipped.
	AssetFiles []string
}

// Compiler runs the Typst CLI in a private scratch directory per call.
type Compiler struct {
	Binary      string
	Timeout     time.Duration
	ScratchRoot string
}

// NewCompiler returns a Compiler with defaults applied for empty fields.
func NewCompiler(binary string, timeout time.Duration, scratchRoot string) *Compiler {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultCompileTimeout
	}
	return &Compiler{Binary: binary, Timeout: timeout, ScratchRoot: scratchRoot}
}

// Compile stages doc in a fresh scratch directory, runs
// `<binary> compile main.typ main.pdf` there and returns the PDF bytes.
// The scratch directory is removed before Compile returns.
func (c *Compiler) Compile(ctx context.Context, doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, &RenderError{Message: "no document to compile"}
	}

	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, &CompilationError{
			Message:     fmt.Sprintf("%s not found in PATH", binary),
			Diagnostics: fmt.Sprintf("compiler %q is not installed", binary),
			Cause:       err,
		}
	}

	workDir, err := os.MkdirTemp(c.ScratchRoot, "resume-render-*")
	if err != nil {
		return nil, &RenderError{Message: "failed to create scratch directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	if err := stage(ctx, workDir, doc); err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCompileTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, "compile", sourceFileName, outputFileName)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	diagnostics := strings.TrimSpace(stderr.String() + stdout.String())

	if runCtx.Err() != nil {
		if diagnostics == "" {
			diagnostics = fmt.Sprintf("typst compile timed out after %s", timeout)
		}
		return nil, &CompilationError{
			Message:     fmt.Sprintf("compilation did not finish within %s", timeout),
			Diagnostics: diagnostics,
			Cause:       runCtx.Err(),
		}
	}
	if runErr != nil {
		if diagnostics == "" {
			diagnostics = runErr.Error()
		}
		return nil, &CompilationError{
			Message:     "compiler exited with an error",
			Diagnostics: diagnostics,
			Cause:       runErr,
		}
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, outputFileName))
	if err != nil {
		return nil, &CompilationError{
			Message:     "PDF was not generated",
			Diagnostics: diagnostics,
			Cause:       err,
		}
	}
	return pdf, nil
}

// stage writes the source and assets into dir.
func stage(ctx context.Context, dir string, doc *Document) error {
	if err := os.WriteFile(filepath.Join(dir, sourceFileName), []byte(doc.Source), 0o600); err != nil {
		return &RenderError{Message: "failed to write source file", Cause: err}
	}

	g, _ := errgroup.WithContext(ctx)
	for name, data := range doc.Assets {
		g.Go(func() error {
			if name != filepath.Base(name) || name == sourceFileName || name == outputFileName {
				return &RenderError{Message: fmt.Sprintf("invalid asset name %q", name)}
			}
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
				return &RenderError{Message: fmt.Sprintf("failed to write asset %s", name), Cause: err}
			}
			return nil
		})
	}
	for _, src := range doc.AssetFiles {
		g.Go(func() error {
			return copyAsset(src, filepath.Join(dir, filepath.Base(src)))
		})
	}
	return g.Wait()
}

func copyAsset(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &RenderError{Message: fmt.Sprintf("failed to read asset %s", src), Cause: err}
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to copy asset %s", src), Cause: err}
	}
	return nil
}
