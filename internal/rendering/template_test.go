package rendering

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestTemplateSet_List(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "resume.typ", "a")
	writeTemplate(t, dir, "compact.typ", "b")
	writeTemplate(t, dir, "notes.txt", "c")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.typ"), 0755))

	names, err := NewTemplateSet(dir).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"compact.typ", "resume.typ"}, names)
}

func TestTemplateSet_ListMissingDirectory(t *testing.T) {
	_, err := NewTemplateSet("/nonexistent/templates").List()
	assert.Error(t, err)
}

func TestTemplateSet_LoadDefault(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, DefaultTemplate, "#let name = {{ name }}")

	text, err := NewTemplateSet(dir).Load("")
	require.NoError(t, err)
	assert.Equal(t, "#let name = {{ name }}", text)
}

func TestTemplateSet_LoadMissing(t *testing.T) {
	_, err := NewTemplateSet(t.TempDir()).Load("missing.typ")
	require.Error(t, err)

	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
	assert.True(t, templateErr.NotFound())
	assert.Contains(t, err.Error(), "missing.typ")
}

func TestTemplateSet_LoadRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "secret.typ", "x")
	set := NewTemplateSet(filepath.Join(dir, "sub"))

	for _, name := range []string{"../secret.typ", "sub/../../secret.typ", "..", "resume.tex"} {
		_, err := set.Load(name)
		var templateErr *TemplateError
		require.ErrorAs(t, err, &templateErr, name)
		assert.True(t, templateErr.NotFound(), name)
	}
}

func TestFill(t *testing.T) {
	text := "#let name = {{ name }}\n#let skills = {{skills}}\n#let x = {{   unknown }}"
	out := Fill(text, map[string]string{
		"name":   `"Ada"`,
		"skills": "()",
	})
	assert.Equal(t, "#let name = \"Ada\"\n#let skills = ()\n#let x = ", out)
}

func TestFill_LeavesTypstBracesAlone(t *testing.T) {
	text := "#let f(x) = { x }\n{{ name }}"
	assert.Equal(t, "#let f(x) = { x }\n\"A\"", Fill(text, map[string]string{"name": `"A"`}))
}

func TestFill_ValuesAreNotRescanned(t *testing.T) {
	out := Fill("{{ summary }}", map[string]string{"summary": `"{{ name }}"`, "name": "boom"})
	assert.Equal(t, `"{{ name }}"`, out)
}

func TestPlaceholders(t *testing.T) {
	text := "{{ name }} {{contact}} {{ name }} {{ skills }}"
	assert.Equal(t, []string{"name", "contact", "skills"}, Placeholders(text))
}
