package rendering

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultTemplate is used when a request does not name a template.
const DefaultTemplate = "resume.typ"

// templateExt is the file extension of Typst templates
const templateExt = ".typ"

// placeholderPattern matches {{ name }} placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// TemplateSet is a directory of Typst templates addressed by file name.
type TemplateSet struct {
	dir string
}

// NewTemplateSet returns a TemplateSet rooted at dir.
func NewTemplateSet(dir string) *TemplateSet {
	return &TemplateSet{dir: dir}
}

// Dir returns the template directory.
func (s *TemplateSet) Dir() string {
	return s.dir
}

// List returns the names of all templates in the directory, sorted.
func (s *TemplateSet) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), templateExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a template by name. An empty name selects DefaultTemplate.
// Names that would escape the template directory are reported as not found.
func (s *TemplateSet) Load(name string) (string, error) {
	if name == "" {
		name = DefaultTemplate
	}

	if name != filepath.Base(name) || name == "." || name == ".." || !strings.HasSuffix(name, templateExt) {
		return "", &TemplateError{
			Name:    name,
			Message: "template not found",
			Cause:   os.ErrNotExist,
		}
	}

	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateError{
				Name:    name,
				Message: "template not found",
				Cause:   err,
			}
		}
		return "", &TemplateError{
			Name:    name,
			Message: "failed to read template file",
			Cause:   err,
		}
	}

	return string(content), nil
}

// Fill replaces every {{ name }} placeholder in text with values[name].
// Placeholders without a value are replaced by the empty string.
func Fill(text string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return values[key]
	})
}

// Placeholders returns the distinct placeholder names used in text, in order of first use.
func Placeholders(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
