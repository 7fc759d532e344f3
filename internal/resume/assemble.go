// Package resume assembles a submission and the stored profile into a Typst
// document ready for compilation.
package resume

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-typesetter/internal/observability"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// IconFiles are the static images templates may reference by file name.
var IconFiles = []string{"email.png", "phone.png", "linkedin.png", "github.png", "location.png"}

// Placeholder names filled by Assemble.
const (
	PlaceholderName       = "name"
	PlaceholderContact    = "contact"
	PlaceholderSummary    = "summary"
	PlaceholderImagePath  = "image_path"
	PlaceholderSkills     = "skills"
	PlaceholderExperience = "experience"
	PlaceholderProjects   = "projects"
	PlaceholderEducation  = "education"
	PlaceholderReferences = "references"
)

// Assembler builds documents from a template directory and a static icon directory.
type Assembler struct {
	templates *rendering.TemplateSet
	staticDir string
	logger    *slog.Logger
}

// NewAssembler creates an Assembler. staticDir may be empty when no icons are available.
func NewAssembler(templates *rendering.TemplateSet, staticDir string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{templates: templates, staticDir: staticDir, logger: logger}
}

// Templates returns the template set the assembler reads from.
func (a *Assembler) Templates() *rendering.TemplateSet {
	return a.templates
}

// loggerFor prefers the request logger carried by ctx.
func (a *Assembler) loggerFor(ctx context.Context) *slog.Logger {
	return observability.LoggerFrom(ctx, a.logger)
}

// Values serializes every placeholder value of sub. The embedded image is
// normalized and returned separately; a bad image is logged and omitted.
func (a *Assembler) Values(ctx context.Context, sub *types.Submission, profile *types.User) (map[string]string, []byte) {
	name := strings.TrimSpace(sub.Name)
	if name == "" && profile != nil {
		name = profile.Name
	}

	var summary any
	if s := strings.TrimSpace(sub.Summary); s != "" {
		summary = s
	}

	var imagePath any
	var image []byte
	if sub.ImageBase64 != "" {
		png, err := rendering.NormalizeEmbeddedImage(sub.ImageBase64)
		if err != nil {
			a.loggerFor(ctx).WarnContext(ctx, "embedded image dropped", "error", err)
		} else {
			image = png
			imagePath = rendering.ImageFileName
		}
	}

	values := map[string]string{
		PlaceholderName:       rendering.Literal(name),
		PlaceholderContact:    rendering.Literal(MergeContact(sub.Contact, profile)),
		PlaceholderSummary:    rendering.Literal(summary),
		PlaceholderImagePath:  rendering.Literal(imagePath),
		PlaceholderSkills:     rendering.Literal(skillValues(sub.Skills)),
		PlaceholderExperience: rendering.Literal(experienceValues(sub.Experience)),
		PlaceholderProjects:   rendering.Literal(projectValues(sub.Projects)),
		PlaceholderEducation:  rendering.Literal(educationValues(sub.Education)),
		PlaceholderReferences: rendering.Literal(referenceValues(sub.References)),
	}
	return values, image
}

// Assemble loads the named template (DefaultTemplate when empty), fills its
// placeholders from sub and profile and returns the document with its assets.
// profile may be nil.
func (a *Assembler) Assemble(ctx context.Context, sub *types.Submission, profile *types.User, templateName string) (*rendering.Document, error) {
	source, err := a.templates.Load(templateName)
	if err != nil {
		return nil, err
	}

	values, image := a.Values(ctx, sub, profile)
	for _, p := range rendering.Placeholders(source) {
		if _, ok := values[p]; !ok {
			a.loggerFor(ctx).DebugContext(ctx, "template placeholder has no value", "template", templateName, "placeholder", p)
		}
	}

	doc := &rendering.Document{
		Source: rendering.Fill(source, values),
		Assets: map[string][]byte{},
	}
	if image != nil {
		doc.Assets[rendering.ImageFileName] = image
	}
	if a.staticDir != "" {
		for _, icon := range IconFiles {
			doc.AssetFiles = append(doc.AssetFiles, filepath.Join(a.staticDir, icon))
		}
	}
	return doc, nil
}
