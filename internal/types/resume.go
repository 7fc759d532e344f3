package types

import "strings"

// Contact holds the contact fields of a submission. Empty fields fall back to
// the stored profile when a résumé is assembled.
type Contact struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
	Website  string `json:"website"`
}

// SkillEntry is one skill with its bullet points.
type SkillEntry struct {
	SkillName    string   `json:"skill_name"`
	BulletPoints []string `json:"bullet_points"`
}

// ExperienceEntry is one position. Years is free text such as "2019 - 2022";
// it is derived from StartYear, EndYear and Ongoing when left empty.
type ExperienceEntry struct {
	ExperienceName string   `json:"experience_name"`
	Years          string   `json:"years"`
	StartYear      string   `json:"start_year"`
	EndYear        string   `json:"end_year"`
	Ongoing        bool     `json:"ongoing"`
	BulletPoints   []string `json:"bullet_points"`
}

// ProjectEntry is one project with an optional repository link.
type ProjectEntry struct {
	ProjectName  string   `json:"project_name"`
	GitHubLink   string   `json:"github_link"`
	BulletPoints []string `json:"bullet_points"`
}

// EducationEntry is one degree or course of study.
type EducationEntry struct {
	EducationName string `json:"education_name"`
	Institution   string `json:"institution"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Grade         string `json:"grade"`
}

// ReferenceEntry is one referee.
type ReferenceEntry struct {
	RefererName      string `json:"referer_name"`
	RefererInstitute string `json:"referer_institute"`
	Position         string `json:"position"`
	ConnectionType   string `json:"connection_type"`
	InstitutionURL   string `json:"institution_url"`
}

// Submission is the payload of one generate or save request. It is never
// stored as a whole; its sections are persisted as individual fragments.
type Submission struct {
	Name        string            `json:"name"`
	Contact     Contact           `json:"contact"`
	Summary     string            `json:"summary"`
	ImageBase64 string            `json:"image_base64,omitempty"`
	Skills      []SkillEntry      `json:"skills"`
	Experience  []ExperienceEntry `json:"experience"`
	Projects    []ProjectEntry    `json:"projects"`
	Education   []EducationEntry  `json:"education"`
	References  []ReferenceEntry  `json:"references"`
}

// Normalize trims every text field and replaces nil lists with empty ones.
// Bullet text is trimmed but kept in order, blanks included.
func (s *Submission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Summary = strings.TrimSpace(s.Summary)
	s.ImageBase64 = strings.TrimSpace(s.ImageBase64)

	c := &s.Contact
	for _, f := range []*string{&c.Email, &c.Phone, &c.Location, &c.LinkedIn, &c.GitHub, &c.Website} {
		*f = strings.TrimSpace(*f)
	}

	if s.Skills == nil {
		s.Skills = []SkillEntry{}
	}
	for i := range s.Skills {
		e := &s.Skills[i]
		e.SkillName = strings.TrimSpace(e.SkillName)
		e.BulletPoints = trimAll(e.BulletPoints)
	}

	if s.Experience == nil {
		s.Experience = []ExperienceEntry{}
	}
	for i := range s.Experience {
		e := &s.Experience[i]
		for _, f := range []*string{&e.ExperienceName, &e.Years, &e.StartYear, &e.EndYear} {
			*f = strings.TrimSpace(*f)
		}
		e.BulletPoints = trimAll(e.BulletPoints)
	}

	if s.Projects == nil {
		s.Projects = []ProjectEntry{}
	}
	for i := range s.Projects {
		e := &s.Projects[i]
		e.ProjectName = strings.TrimSpace(e.ProjectName)
		e.GitHubLink = strings.TrimSpace(e.GitHubLink)
		e.BulletPoints = trimAll(e.BulletPoints)
	}

	if s.Education == nil {
		s.Education = []EducationEntry{}
	}
	for i := range s.Education {
		e := &s.Education[i]
		for _, f := range []*string{&e.EducationName, &e.Institution, &e.Start, &e.End, &e.Grade} {
			*f = strings.TrimSpace(*f)
		}
	}

	if s.References == nil {
		s.References = []ReferenceEntry{}
	}
	for i := range s.References {
		e := &s.References[i]
		for _, f := range []*string{&e.RefererName, &e.RefererInstitute, &e.Position, &e.ConnectionType, &e.InstitutionURL} {
			*f = strings.TrimSpace(*f)
		}
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
