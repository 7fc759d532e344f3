// Package observability configures process logging and formats verbose CLI
// output for offline renders.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-typesetter/internal/library"
	"github.com/jonathan/resume-typesetter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// section writes up to maxItemsToShow names under a heading.
func section(sb *strings.Builder, heading string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s (%d):\n", heading, len(names))
	count := min(len(names), maxItemsToShow)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", truncate(names[i], 45))
	}
	if len(names) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(names)-maxItemsToShow)
	}
}

// PrintSubmission outputs a human-readable summary of a submission.
func (p *Printer) PrintSubmission(sub *types.Submission) {
	if sub == nil {
		return
	}

	var sb strings.Builder
	name := sub.Name
	if name == "" {
		name = "(from profile)"
	}
	fmt.Fprintf(&sb, "Name:     %s\n", name)
	if sub.Contact.Email != "" {
		fmt.Fprintf(&sb, "Email:    %s\n", sub.Contact.Email)
	}
	if sub.Summary != "" {
		fmt.Fprintf(&sb, "Summary:  %s\n", truncate(sub.Summary, 40))
	}
	if sub.ImageBase64 != "" {
		sb.WriteString("Image:    embedded\n")
	}
	sb.WriteString("\n")

	skills := make([]string, len(sub.Skills))
	for i, e := range sub.Skills {
		skills[i] = e.SkillName
	}
	section(&sb, "Skills", skills)

	experience := make([]string, len(sub.Experience))
	for i, e := range sub.Experience {
		experience[i] = e.ExperienceName
	}
	section(&sb, "Experience", experience)

	projects := make([]string, len(sub.Projects))
	for i, e := range sub.Projects {
		projects[i] = e.ProjectName
	}
	section(&sb, "Projects", projects)

	education := make([]string, len(sub.Education))
	for i, e := range sub.Education {
		education[i] = e.EducationName
	}
	section(&sb, "Education", education)

	references := make([]string, len(sub.References))
	for i, e := range sub.References {
		references[i] = e.RefererName
	}
	section(&sb, "References", references)

	p.printBox("SUBMISSION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRender outputs where a PDF was written and how large it is.
func (p *Printer) PrintRender(template, path string, size int) {
	if template == "" {
		template = "(default)"
	}
	content := fmt.Sprintf("Template: %s\nOutput:   %s\nSize:     %s", template, path, formatBytes(size))
	p.printBox("RENDERED PDF", content)
}

// PrintSaveReport outputs the outcome of a bulk fragment save.
func (p *Printer) PrintSaveReport(report library.SaveReport) {
	var sb strings.Builder
	for _, kind := range library.Kinds() {
		if n := report.Saved[kind]; n > 0 {
			fmt.Fprintf(&sb, "%-12s %d\n", string(kind)+":", n)
		}
	}
	fmt.Fprintf(&sb, "Skipped:     %d\n", report.Skipped)
	fmt.Fprintf(&sb, "Failed:      %d", report.Failed)
	p.printBox("SAVED FRAGMENTS", sb.String())
}

// PrintTemplates outputs the available template names.
func (p *Printer) PrintTemplates(names []string) {
	if len(names) == 0 {
		p.printBox("TEMPLATES", "(none)")
		return
	}
	p.printBox("TEMPLATES", strings.Join(names, "\n"))
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
