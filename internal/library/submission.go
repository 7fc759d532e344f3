package library

import "github.com/jonathan/resume-typesetter/internal/types"

// SubmissionRecords converts every section entry of sub, plus its summary,
// into records in section order. Entries with a blank name are included;
// the service skips them.
func SubmissionRecords(sub *types.Submission) []Record {
	var out []Record
	for _, e := range sub.Skills {
		out = append(out, NewRecord(KindSkill, map[string]any{
			"skill_name": e.SkillName,
		}, e.BulletPoints))
	}
	for _, e := range sub.Experience {
		out = append(out, NewRecord(KindExperience, map[string]any{
			"experience_name": e.ExperienceName,
			"start_year":      e.StartYear,
			"end_year":        e.EndYear,
			"ongoing":         e.Ongoing,
			"years":           e.Years,
		}, e.BulletPoints))
	}
	for _, e := range sub.Projects {
		out = append(out, NewRecord(KindProject, map[string]any{
			"project_name": e.ProjectName,
			"github_link":  e.GitHubLink,
		}, e.BulletPoints))
	}
	for _, e := range sub.Education {
		out = append(out, NewRecord(KindEducation, map[string]any{
			"education_name": e.EducationName,
			"institution":    e.Institution,
			"start":          e.Start,
			"end":            e.End,
			"grade":          e.Grade,
		}, nil))
	}
	for _, e := range sub.References {
		out = append(out, NewRecord(KindReference, map[string]any{
			"referer_name":      e.RefererName,
			"referer_institute": e.RefererInstitute,
			"position":          e.Position,
			"connection_type":   e.ConnectionType,
			"institution_url":   e.InstitutionURL,
		}, nil))
	}
	out = append(out, NewRecord(KindSummary, map[string]any{"text": sub.Summary}, nil))
	return out
}
