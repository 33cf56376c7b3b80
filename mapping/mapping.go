// Package mapping holds the field-mapping model shared by the fill engine
// and the template store: one FieldMapping binds a page or document field
// selector to a canonical key or to a checkbox rule, and a Template is the
// single-latest set of mappings learned for one (host, path) target.
package mapping

import (
	"strings"
	"time"
)

// Kind classifies the control a mapping writes to.
type Kind string

const (
	KindText     Kind = "text"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
)

// FieldMapping is one rule binding a field selector to a canonical key
// (text/select kinds) or to a checked_when rule (checkbox/radio kinds).
// PDF document fields use "pdf:" + field name as the selector.
type FieldMapping struct {
	Selector     string  `json:"selector"`
	CanonicalKey string  `json:"canonical_key"`
	FieldKind    Kind    `json:"field_kind"`
	MatchValue   string  `json:"match_value"`
	CheckedWhen  string  `json:"checked_when"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
}

// Valid reports whether the mapping satisfies the model invariants:
// checkbox/radio mappings need both match_value and checked_when, text/select
// mappings need a canonical key. The selector is always required.
func (m FieldMapping) Valid() bool {
	if strings.TrimSpace(m.Selector) == "" {
		return false
	}
	switch m.FieldKind {
	case KindCheckbox, KindRadio:
		return strings.TrimSpace(m.MatchValue) != "" && strings.TrimSpace(m.CheckedWhen) != ""
	case KindText, KindSelect:
		return strings.TrimSpace(m.CanonicalKey) != ""
	default:
		return false
	}
}

// Normalize trims every mapping, defaults unknown kinds to text, and drops
// entries that remain invalid. Invalid input never errors: degraded template
// submissions simply shrink.
func Normalize(in []FieldMapping) []FieldMapping {
	out := make([]FieldMapping, 0, len(in))
	for _, m := range in {
		m.Selector = strings.TrimSpace(m.Selector)
		m.CanonicalKey = strings.TrimSpace(m.CanonicalKey)
		m.MatchValue = strings.TrimSpace(m.MatchValue)
		m.CheckedWhen = strings.TrimSpace(m.CheckedWhen)
		m.FieldKind = Kind(strings.ToLower(strings.TrimSpace(string(m.FieldKind))))
		switch m.FieldKind {
		case KindText, KindSelect, KindCheckbox, KindRadio:
		default:
			m.FieldKind = KindText
		}
		if m.Confidence == 0 {
			m.Confidence = 1.0
		}
		if m.Source == "" {
			m.Source = "user"
		}
		if !m.Valid() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Rect is a field widget bounding box in page coordinates.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// FieldDescriptor is one raw form field observed during inspection, kept in
// the template's fields snapshot so operators can re-map later without
// re-opening the target.
type FieldDescriptor struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	AriaLabel   string `json:"aria_label"`
	Visible     bool   `json:"visible"`
	PageIndex   int    `json:"page_index"`
	Rect        *Rect  `json:"rect,omitempty"`
}

// Template is the persisted single-latest mapping set for one normalized
// (host, path) target. Saving replaces it wholesale except CreatedAt, which
// survives from the original save.
type Template struct {
	Host           string            `json:"host"`
	Path           string            `json:"path"`
	Source         string            `json:"source"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	FieldsSnapshot []FieldDescriptor `json:"fields_snapshot"`
	FieldsCount    int               `json:"fields_count"`
	Mappings       []FieldMapping    `json:"mappings"`
	MappingsCount  int               `json:"mappings_count"`
}
