package resume

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/resume-typesetter/internal/observability"
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplate = `#let name = {{ name }}
#let contact = {{ contact }}
#let summary = {{ summary }}
#let image_path = {{ image_path }}
#let skills = {{ skills }}
#let experience = {{ experience }}
#let projects = {{ projects }}
#let education = {{ education }}
#let references = {{ references }}
#let extra = "{{ unknown }}"
`

func newTestAssembler(t *testing.T) (*Assembler, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, rendering.DefaultTemplate), []byte(testTemplate), 0o644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewAssembler(rendering.NewTemplateSet(dir), "/static", logger), &logs
}

func TestMergeContact_FallsBackToProfile(t *testing.T) {
	profile := &types.User{Email: "a@b.com"}
	got := rendering.Literal(MergeContact(types.Contact{}, profile))
	assert.Equal(t,
		`(email: "a@b.com", phone: none, location: none, linkedin: none, github: none, website: none)`, got)
}

func TestMergeContact_SubmissionWins(t *testing.T) {
	profile := &types.User{Email: "a@b.com", Phone: "111", GitHub: "gh/stored"}
	got := MergeContact(types.Contact{Email: "new@b.com", Website: "ada.dev"}, profile)
	assert.Equal(t, rendering.Dict{
		{Key: "email", Value: "new@b.com"},
		{Key: "phone", Value: "111"},
		{Key: "location", Value: nil},
		{Key: "linkedin", Value: nil},
		{Key: "github", Value: "gh/stored"},
		{Key: "website", Value: "ada.dev"},
	}, got)
}

func TestMergeContact_NilProfile(t *testing.T) {
	got := rendering.Literal(MergeContact(types.Contact{Phone: "555"}, nil))
	assert.Contains(t, got, `phone: "555"`)
	assert.Contains(t, got, `email: none`)
}

func TestDeriveYears(t *testing.T) {
	tests := []struct {
		start, end string
		ongoing    bool
		want       string
	}{
		{"2019", "2021", false, "2019 - 2021"},
		{"2019", "", true, "2019 - Present"},
		{"2019", "2021", true, "2019 - Present"},
		{"2019", "2019", false, "2019"},
		{"2019", "", false, "2019"},
		{"", "2021", false, "2021"},
		{"", "", true, "Present"},
		{"", "", false, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveYears(tt.start, tt.end, tt.ongoing), "%+v", tt)
	}
}

func TestAssemble_FillsEveryPlaceholder(t *testing.T) {
	a, _ := newTestAssembler(t)
	sub := &types.Submission{
		Name:    `Ada "Countess" Lovelace`,
		Summary: "Analyst.",
		Skills:  []types.SkillEntry{{SkillName: "Go", BulletPoints: []string{"Built a service"}}},
		Experience: []types.ExperienceEntry{
			{ExperienceName: "Acme", StartYear: "2019", Ongoing: true},
		},
		Projects:  []types.ProjectEntry{{ProjectName: "typesetter"}},
		Education: []types.EducationEntry{{EducationName: "BSc", Institution: "MIT", Grade: "A"}},
	}

	doc, err := a.Assemble(context.Background(), sub, &types.User{Name: "Stored"}, "")
	require.NoError(t, err)

	src := doc.Source
	assert.Contains(t, src, `#let name = "Ada \"Countess\" Lovelace"`)
	assert.Contains(t, src, `#let summary = "Analyst."`)
	assert.Contains(t, src, `#let image_path = none`)
	assert.Contains(t, src, `#let skills = ((skill_name: "Go", bullet_points: ("Built a service",)),)`)
	assert.Contains(t, src, `years: "2019 - Present"`)
	assert.Contains(t, src, `ongoing: true`)
	assert.Contains(t, src, `#let projects = ((project_name: "typesetter", bullet_points: (), github_link: none),)`)
	assert.Contains(t, src, `grade: "A"`)
	assert.Contains(t, src, `#let references = ()`)
	assert.Contains(t, src, `#let extra = ""`)
	assert.NotContains(t, src, "{{")

	assert.Empty(t, doc.Assets)
	require.Len(t, doc.AssetFiles, len(IconFiles))
	assert.Equal(t, filepath.Join("/static", "email.png"), doc.AssetFiles[0])
}

func TestAssemble_NameFallsBackToProfile(t *testing.T) {
	a, _ := newTestAssembler(t)
	doc, err := a.Assemble(context.Background(), &types.Submission{Name: "  "}, &types.User{Name: "Stored Name"}, "")
	require.NoError(t, err)
	assert.Contains(t, doc.Source, `#let name = "Stored Name"`)
	assert.Contains(t, doc.Source, `#let summary = none`)
}

func TestAssemble_StagesImage(t *testing.T) {
	a, _ := newTestAssembler(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	sub := &types.Submission{ImageBase64: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())}

	doc, err := a.Assemble(context.Background(), sub, nil, "")
	require.NoError(t, err)
	assert.Contains(t, doc.Source, `#let image_path = "resume_image.png"`)
	assert.NotEmpty(t, doc.Assets[rendering.ImageFileName])
}

func TestAssemble_MalformedImageIsLoggedAndOmitted(t *testing.T) {
	a, logs := newTestAssembler(t)
	sub := &types.Submission{Name: "Ada", ImageBase64: "data:image/png;base64,%%%not-an-image%%%"}

	doc, err := a.Assemble(context.Background(), sub, nil, "")
	require.NoError(t, err)
	assert.Contains(t, doc.Source, `#let image_path = none`)
	assert.NotContains(t, doc.Assets, rendering.ImageFileName)
	assert.Contains(t, logs.String(), "embedded image dropped")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestAssemble_ImageWarningUsesRequestLogger(t *testing.T) {
	a, processLogs := newTestAssembler(t)
	var requestLogs bytes.Buffer
	requestLogger := slog.New(slog.NewTextHandler(&requestLogs, nil)).With("correlation_id", "corr-9")
	ctx := observability.WithLogger(context.Background(), requestLogger)

	sub := &types.Submission{Name: "Ada", ImageBase64: "data:image/png;base64,%%%not-an-image%%%"}
	_, err := a.Assemble(ctx, sub, nil, "")
	require.NoError(t, err)

	assert.Contains(t, requestLogs.String(), "embedded image dropped")
	assert.Contains(t, requestLogs.String(), "correlation_id=corr-9")
	assert.NotContains(t, processLogs.String(), "embedded image dropped")
}

func TestShippedTemplates_UseKnownPlaceholders(t *testing.T) {
	known := map[string]bool{
		PlaceholderName: true, PlaceholderContact: true, PlaceholderSummary: true,
		PlaceholderImagePath: true, PlaceholderSkills: true, PlaceholderExperience: true,
		PlaceholderProjects: true, PlaceholderEducation: true, PlaceholderReferences: true,
	}
	for _, name := range []string{"resume.typ", "compact.typ"} {
		source, err := os.ReadFile(filepath.Join("..", "..", "templates", name))
		require.NoError(t, err)
		for _, p := range rendering.Placeholders(string(source)) {
			assert.True(t, known[p], "%s: unexpected placeholder %q", name, p)
		}
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewAssembler(rendering.NewTemplateSet(filepath.Join("..", "..", "templates")), "", logger)
	_, err := a.Assemble(context.Background(), &types.Submission{Name: "Ada"}, nil, "resume.typ")
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "template placeholder has no value")
}

func TestAssemble_LogsUnknownPlaceholders(t *testing.T) {
	a, logs := newTestAssembler(t)
	_, err := a.Assemble(context.Background(), &types.Submission{}, nil, "")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "placeholder=unknown")
}

func TestAssemble_MissingTemplate(t *testing.T) {
	a, _ := newTestAssembler(t)
	_, err := a.Assemble(context.Background(), &types.Submission{}, nil, "fancy.typ")

	var tmplErr *rendering.TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.True(t, tmplErr.NotFound())
}

func TestAssemble_NoStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume.typ"), []byte("{{ name }}"), 0o644))
	a := NewAssembler(rendering.NewTemplateSet(dir), "", nil)

	doc, err := a.Assemble(context.Background(), &types.Submission{Name: "Ada"}, nil, "resume.typ")
	require.NoError(t, err)
	assert.Equal(t, `"Ada"`, doc.Source)
	assert.Empty(t, doc.AssetFiles)
}
