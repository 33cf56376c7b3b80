package fill

import "errors"

// Mode names the execution strategy that handled a target.
type Mode string

const (
	// ModePage means the target was driven in-place as an interactive
	// HTML page.
	ModePage Mode = "page"
	// ModeDocument means the target was fetched and filled as a
	// standalone form document.
	ModeDocument Mode = "document"
)

var (
	// ErrInvalidTarget reports a target URL that cannot be parsed or
	// probed at all.
	ErrInvalidTarget = errors.New("fill: invalid target")

	// ErrNotForm reports a fetched document with no fillable fields.
	ErrNotForm = errors.New("fill: document has no form fields")

	// ErrRequiredFieldUnresolved aborts a document fill when a field the
	// target treats as mandatory (the complementary-copy amount) exists
	// but no canonical value reaches it.
	ErrRequiredFieldUnresolved = errors.New("fill: required field unresolved")
)

// Applied records one field that received a value, with enough detail to
// audit or replay the decision.
type Applied struct {
	// Field is the CSS selector (page mode) or fully qualified form
	// field name (document mode).
	Field string `json:"field"`
	// Key is the canonical key whose value was written, when known.
	Key string `json:"key,omitempty"`
	// Kind is the widget kind: text, select, checkbox, radio.
	Kind string `json:"kind"`
	// Value is the written value, or the check state for button widgets.
	Value string `json:"value"`
	// Source tells where the decision came from: mapping, triplet,
	// group, adapter, heuristic.
	Source string `json:"source"`
}

// Skipped records a mapped field that was deliberately left alone, with the
// reason: empty_value, rule_unparsable, rule_evaluated_false,
// field_not_found, field_disabled, strict_mode.
type Skipped struct {
	Field  string `json:"field"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// Artifacts lists files written under Options.OutDir during a fill.
type Artifacts struct {
	Document    string   `json:"document,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	DOMSnapshot string   `json:"dom_snapshot,omitempty"`
	Dumps       []string `json:"dumps,omitempty"`
}

// Result is the outcome of a fill call. FilledFields holds canonical keys in
// page mode and document field names in document mode, deduplicated in fill
// order.
type Result struct {
	Mode         Mode      `json:"mode"`
	TargetURL    string    `json:"target_url"`
	FilledFields []string  `json:"filled_fields"`
	Applied      []Applied `json:"applied_mappings"`
	Skipped      []Skipped `json:"skipped,omitempty"`
	Unchecked    []Applied `json:"unchecked,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	Artifacts    Artifacts `json:"artifacts"`
}

func (r *Result) fill(name string) {
	for _, f := range r.FilledFields {
		if f == name {
			return
		}
	}
	r.FilledFields = append(r.FilledFields, name)
}

func (r *Result) applied(field, key, kind, value, source string) {
	r.Applied = append(r.Applied, Applied{Field: field, Key: key, Kind: kind, Value: value, Source: source})
}

func (r *Result) skipped(field, key, reason string) {
	r.Skipped = append(r.Skipped, Skipped{Field: field, Key: key, Reason: reason})
}
