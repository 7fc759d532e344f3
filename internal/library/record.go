package library

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// bulletsField is the JSON name of a fragment's bullet list.
const bulletsField = "bullet_points"

// Record is one fragment in storage form. Values holds one entry per schema
// column: a string for text columns, a bool for boolean columns.
type Record struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Kind    Kind
	Values  map[string]any
	Bullets []string
}

// NewRecord builds a normalized record of kind. Text values are trimmed,
// missing columns are filled with their zero value and unknown keys are dropped.
func NewRecord(kind Kind, values map[string]any, bullets []string) Record {
	schema := mustSchema(kind)
	rec := Record{Kind: kind, Values: make(map[string]any, len(schema.Columns))}
	for _, col := range schema.Columns {
		switch col.Type {
		case BoolColumn:
			b, _ := values[col.Name].(bool)
			rec.Values[col.Name] = b
		default:
			s, _ := values[col.Name].(string)
			rec.Values[col.Name] = strings.TrimSpace(s)
		}
	}
	if schema.HasBullets() && bullets != nil {
		rec.Bullets = append([]string(nil), bullets...)
	}
	return rec
}

// Name returns the trimmed primary name of the fragment.
func (r Record) Name() string {
	s, _ := r.Values[mustSchema(r.Kind).NameColumn].(string)
	return strings.TrimSpace(s)
}

// Text returns the value of a text column, or "" when absent.
func (r Record) Text(column string) string {
	s, _ := r.Values[column].(string)
	return s
}

// Bool returns the value of a boolean column, or false when absent.
func (r Record) Bool(column string) bool {
	b, _ := r.Values[column].(bool)
	return b
}

// ColumnValues returns the values of columns in order.
func (r Record) ColumnValues(columns []Column) []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		v, ok := r.Values[col.Name]
		if !ok {
			if col.Type == BoolColumn {
				v = false
			} else {
				v = ""
			}
		}
		out[i] = v
	}
	return out
}

// MarshalJSON flattens the record into the same shape as a submission entry,
// plus its id.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	out["id"] = r.ID
	if schema, ok := schemas[r.Kind]; ok && schema.HasBullets() {
		bullets := r.Bullets
		if bullets == nil {
			bullets = []string{}
		}
		out[bulletsField] = bullets
	}
	return json.Marshal(out)
}

// DecodeRecord parses a JSON fragment body of the given kind. Fields must
// carry the column's JSON type; null and absent fields are treated as empty.
func DecodeRecord(kind Kind, data []byte) (Record, error) {
	schema, ok := schemas[kind]
	if !ok {
		return Record{}, &InvalidFragmentError{Message: fmt.Sprintf("unknown fragment kind %q", kind)}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, &InvalidFragmentError{Kind: kind, Message: "body must be a JSON object"}
	}
	if raw == nil {
		return Record{}, &InvalidFragmentError{Kind: kind, Message: "body must be a JSON object"}
	}

	for _, col := range schema.Columns {
		v, present := raw[col.Name]
		if !present || v == nil {
			continue
		}
		switch col.Type {
		case BoolColumn:
			if _, ok := v.(bool); !ok {
				return Record{}, &InvalidFragmentError{Kind: kind, Message: col.Name + " must be a boolean"}
			}
		default:
			if _, ok := v.(string); !ok {
				return Record{}, &InvalidFragmentError{Kind: kind, Message: col.Name + " must be a string"}
			}
		}
	}

	var bullets []string
	if v, present := raw[bulletsField]; present && v != nil {
		if !schema.HasBullets() {
			return Record{}, &InvalidFragmentError{Kind: kind, Message: "fragments of this kind have no bullets"}
		}
		items, ok := v.([]any)
		if !ok {
			return Record{}, &InvalidFragmentError{Kind: kind, Message: bulletsField + " must be an array of strings"}
		}
		bullets = make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return Record{}, &InvalidFragmentError{Kind: kind, Message: bulletsField + " must be an array of strings"}
			}
			bullets = append(bullets, s)
		}
	}

	rec := NewRecord(kind, raw, bullets)
	if rec.Name() == "" {
		return Record{}, &InvalidFragmentError{Kind: kind, Message: schema.NameColumn + " is required"}
	}
	if schema.HasBullets() && rec.Bullets == nil {
		rec.Bullets = []string{}
	}
	return rec, nil
}
