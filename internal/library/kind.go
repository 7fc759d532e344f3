// Package library stores the reusable résumé fragments a user accumulates
// across submissions: skills, experience, projects, education, references
// and summaries, plus the bullets owned by the first three.
package library

import "fmt"

// Kind identifies a fragment type. Values double as the URL segment and the
// submission section name.
type Kind string

// Fragment kinds
const (
	KindSkill      Kind = "skills"
	KindExperience Kind = "experience"
	KindProject    Kind = "projects"
	KindEducation  Kind = "education"
	KindReference  Kind = "references"
	KindSummary    Kind = "summaries"
)

// ColumnType is the storage type of a fragment column.
type ColumnType int

const (
	TextColumn ColumnType = iota
	BoolColumn
)

// Column describes one stored field of a fragment.
type Column struct {
	Name string
	Type ColumnType
	// Key marks the column as part of the fragment's natural key.
	Key bool
	// Hashed key columns are unbounded text, indexed through their
	// <name>_sha256 generated column.
	Hashed bool
}

// HashColumn is the generated column that indexes a hashed key column.
func HashColumn(name string) string {
	return name + "_sha256"
}

// Schema describes how a fragment kind is stored.
type Schema struct {
	Kind  Kind
	Table string
	// NameColumn holds the primary name. Fragments whose name is blank are never stored.
	NameColumn string
	Columns    []Column
	// BulletTable is empty for kinds without bullets.
	BulletTable string
}

// HasBullets reports whether fragments of this kind own bullets.
func (s Schema) HasBullets() bool {
	return s.BulletTable != ""
}

// KeyColumns returns the natural key columns in declaration order.
func (s Schema) KeyColumns() []Column {
	keys := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Key {
			keys = append(keys, c)
		}
	}
	return keys
}

// ConflictTarget returns the indexed columns enforcing the natural key,
// with hashed columns replaced by their generated hash column.
func (s Schema) ConflictTarget() []string {
	var target []string
	for _, c := range s.KeyColumns() {
		if c.Hashed {
			target = append(target, HashColumn(c.Name))
		} else {
			target = append(target, c.Name)
		}
	}
	return target
}

func text(name string, key bool) Column { return Column{Name: name, Type: TextColumn, Key: key} }

var kinds = []Kind{KindSkill, KindExperience, KindProject, KindEducation, KindReference, KindSummary}

var schemas = map[Kind]Schema{
	KindSkill: {
		Kind:        KindSkill,
		Table:       "skills",
		NameColumn:  "skill_name",
		Columns:     []Column{text("skill_name", true)},
		BulletTable: "skill_bullets",
	},
	KindExperience: {
		Kind:       KindExperience,
		Table:      "experiences",
		NameColumn: "experience_name",
		Columns: []Column{
			text("experience_name", true),
			text("start_year", true),
			text("end_year", true),
			{Name: "ongoing", Type: BoolColumn, Key: true},
			text("years", false),
		},
		BulletTable: "experience_bullets",
	},
	KindProject: {
		Kind:        KindProject,
		Table:       "projects",
		NameColumn:  "project_name",
		Columns:     []Column{text("project_name", true), text("github_link", true)},
		BulletTable: "project_bullets",
	},
	KindEducation: {
		Kind:       KindEducation,
		Table:      "educations",
		NameColumn: "education_name",
		Columns: []Column{
			text("education_name", true),
			text("institution", true),
			text("start", true),
			text("end", true),
			text("grade", true),
		},
	},
	KindReference: {
		Kind:       KindReference,
		Table:      "reference_entries",
		NameColumn: "referer_name",
		Columns: []Column{
			text("referer_name", true),
			text("referer_institute", true),
			text("position", true),
			text("connection_type", false),
			text("institution_url", false),
		},
	},
	KindSummary: {
		Kind:       KindSummary,
		Table:      "summaries",
		NameColumn: "text",
		Columns:    []Column{{Name: "text", Type: TextColumn, Key: true, Hashed: true}},
	},
}

// Kinds returns every fragment kind in display order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind resolves a kind from its name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := schemas[k]; !ok {
		return "", &InvalidFragmentError{Message: fmt.Sprintf("unknown fragment kind %q", name)}
	}
	return k, nil
}

// SchemaFor returns the storage schema of kind.
func SchemaFor(kind Kind) (Schema, bool) {
	s, ok := schemas[kind]
	return s, ok
}

func mustSchema(kind Kind) Schema {
	s, ok := schemas[kind]
	if !ok {
		panic(fmt.Sprintf("library: unknown fragment kind %q", kind))
	}
	return s
}
