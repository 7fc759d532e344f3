package resume

import (
	"github.com/jonathan/resume-typesetter/internal/rendering"
	"github.com/jonathan/resume-typesetter/internal/types"
)

// optional maps empty text to none.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// bullets never returns nil so that an entry without bullets renders as ().
func bullets(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// DeriveYears formats a date range from its parts: "2019 - 2021",
// "2019 - Present", or a single year.
func DeriveYears(start, end string, ongoing bool) string {
	switch {
	case start != "" && ongoing:
		return start + " - Present"
	case start != "" && end != "" && start != end:
		return start + " - " + end
	case start != "":
		return start
	case end != "":
		return end
	case ongoing:
		return "Present"
	default:
		return ""
	}
}

func skillValues(entries []types.SkillEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = rendering.Dict{
			{Key: "skill_name", Value: e.SkillName},
			{Key: "bullet_points", Value: bullets(e.BulletPoints)},
		}
	}
	return out
}

func experienceValues(entries []types.ExperienceEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		years := e.Years
		if years == "" {
			years = DeriveYears(e.StartYear, e.EndYear, e.Ongoing)
		}
		out[i] = rendering.Dict{
			{Key: "experience_name", Value: e.ExperienceName},
			{Key: "bullet_points", Value: bullets(e.BulletPoints)},
			{Key: "years", Value: optional(years)},
			{Key: "start_year", Value: optional(e.StartYear)},
			{Key: "end_year", Value: optional(e.EndYear)},
			{Key: "ongoing", Value: e.Ongoing},
		}
	}
	return out
}

func projectValues(entries []types.ProjectEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = rendering.Dict{
			{Key: "project_name", Value: e.ProjectName},
			{Key: "bullet_points", Value: bullets(e.BulletPoints)},
			{Key: "github_link", Value: optional(e.GitHubLink)},
		}
	}
	return out
}

func educationValues(entries []types.EducationEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = rendering.Dict{
			{Key: "education_name", Value: e.EducationName},
			{Key: "institution", Value: e.Institution},
			{Key: "start", Value: optional(e.Start)},
			{Key: "end", Value: optional(e.End)},
			{Key: "grade", Value: optional(e.Grade)},
		}
	}
	return out
}

func referenceValues(entries []types.ReferenceEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = rendering.Dict{
			{Key: "referer_name", Value: e.RefererName},
			{Key: "referer_institute", Value: e.RefererInstitute},
			{Key: "position", Value: optional(e.Position)},
			{Key: "connection_type", Value: optional(e.ConnectionType)},
			{Key: "institution_url", Value: optional(e.InstitutionURL)},
		}
	}
	return out
}

// MergeContact resolves each contact field from the submission, falling back
// to the stored profile. Fields empty in both are none.
func MergeContact(c types.Contact, profile *types.User) rendering.Dict {
	var stored types.User
	if profile != nil {
		stored = *profile
	}
	pick := func(submitted, fallback string) any {
		if submitted != "" {
			return submitted
		}
		return optional(fallback)
	}
	return rendering.Dict{
		{Key: "email", Value: pick(c.Email, stored.Email)},
		{Key: "phone", Value: pick(c.Phone, stored.Phone)},
		{Key: "location", Value: pick(c.Location, stored.Location)},
		{Key: "linkedin", Value: pick(c.LinkedIn, stored.LinkedIn)},
		{Key: "github", Value: pick(c.GitHub, stored.GitHub)},
		{Key: "website", Value: pick(c.Website, stored.Website)},
	}
}
