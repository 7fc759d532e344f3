package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSubmission_Valid(t *testing.T) {
	body := `{
		"name": "Ada Lovelace",
		"contact": {"email": "ada@example.com", "phone": null},
		"summary": "Analyst.",
		"skills": [{"skill_name": "Go", "bullet_points": ["Built a service"]}],
		"experience": [{"experience_name": "Acme", "start_year": "2019", "ongoing": true, "bullet_points": []}],
		"projects": [{"project_name": "typesetter", "github_link": null}],
		"education": [{"education_name": "BSc", "institution": "MIT"}],
		"references": []
	}`
	assert.NoError(t, ValidateSubmission([]byte(body)))
}

func TestValidateSubmission_EmptyObject(t *testing.T) {
	assert.NoError(t, ValidateSubmission([]byte(`{}`)))
}

func TestValidateSubmission_TypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"root not object", `["a"]`, "(root)"},
		{"name not string", `{"name": 42}`, "name"},
		{"skills not array", `{"skills": {"skill_name": "Go"}}`, "skills"},
		{"bullet not string", `{"skills": [{"skill_name": "Go", "bullet_points": [1]}]}`, "skills.0.bullet_points.0"},
		{"ongoing not bool", `{"experience": [{"experience_name": "Acme", "ongoing": "yes"}]}`, "experience.0.ongoing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubmission([]byte(tt.body))
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.NotEmpty(t, validationErr.Errors)
			assert.Equal(t, tt.field, validationErr.Errors[0].Field)
		})
	}
}

func TestValidateSubmission_MalformedJSON(t *testing.T) {
	err := ValidateSubmission([]byte(`{ "name": `))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateSubmissionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submission.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Ada"}`), 0644))

	data, err := ValidateSubmissionFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Ada"}`, string(data))

	_, err = ValidateSubmissionFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read submission file")
}

func TestValidateJSONString_Valid(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`
	assert.NoError(t, ValidateJSONString(schema, `{"name": "test"}`))
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`
	err := ValidateJSONString(schema, `{}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "Invalid type. Expected: string, given: integer"},
			{Field: "skills", Message: "Invalid type"},
		},
	}

	msg := ve.Error()
	assert.Contains(t, msg, "validation failed")
	assert.Contains(t, msg, "1. name: Invalid type")
	assert.Contains(t, msg, "2. skills: Invalid type")
}
