package fill

import (
	"errors"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

func TestTextValueForExplicitOnlyMode(t *testing.T) {
	values := canonical.ValueMap{
		"nombre":          "OLENA",
		"primer_apellido": "KOVALENKO",
	}
	cases := []struct {
		name           string
		field          string
		mappedKey      string
		strictExplicit bool
		dates          map[string]string
		wantValue      string
		wantSource     string
	}{
		{
			name:           "heuristic suppressed in explicit-only mode",
			field:          "Nombre",
			strictExplicit: true,
			wantValue:      "",
		},
		{
			name:       "heuristic resolves outside explicit-only mode",
			field:      "Nombre",
			wantValue:  "OLENA",
			wantSource: "heuristic",
		},
		{
			name:           "explicit key still writes in explicit-only mode",
			field:          "Campo3",
			mappedKey:      "nombre",
			strictExplicit: true,
			wantValue:      "OLENA",
			wantSource:     "mapping",
		},
		{
			name:           "date triplet resolves regardless of mode",
			field:          "Dia",
			strictExplicit: true,
			dates:          map[string]string{"Dia": "02"},
			wantValue:      "02",
			wantSource:     "triplet",
		},
		{
			name:           "composed full name resolves regardless of mode",
			field:          "Nombre y apellidos del titular",
			strictExplicit: true,
			wantValue:      "OLENA KOVALENKO",
			wantSource:     "heuristic",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dates := tc.dates
			if dates == nil {
				dates = map[string]string{}
			}
			value, source, err := textValueFor(tc.field, tc.mappedKey, "mapping", tc.strictExplicit, dates, values)
			if err != nil {
				t.Fatalf("textValueFor: %v", err)
			}
			if value != tc.wantValue {
				t.Errorf("value = %q, want %q", value, tc.wantValue)
			}
			if tc.wantValue != "" && source != tc.wantSource {
				t.Errorf("source = %q, want %q", source, tc.wantSource)
			}
		})
	}
}

func TestTextValueForComplementaryAmountAborts(t *testing.T) {
	_, _, err := textValueFor("Importe de la liquidación complementaria", "", "mapping", true, map[string]string{}, canonical.ValueMap{})
	if !errors.Is(err, ErrRequiredFieldUnresolved) {
		t.Fatalf("err = %v, want ErrRequiredFieldUnresolved", err)
	}
}

func checkboxField(name string) *docField {
	return &docField{
		Name:    name,
		Kind:    widgetCheckbox,
		OnState: "1",
		widget:  types.Dict{},
		holder:  types.Dict{},
	}
}

func TestFillDocumentCheckboxRuleFalseUnchecks(t *testing.T) {
	e := New(nil)
	doc := &formDoc{}
	f := checkboxField("CASILLA_UE")
	meta := explicitMeta{key: "sexo", kind: mapping.KindCheckbox, matchValue: "M", rule: `sexo == "M"`}

	res := &Result{}
	e.fillDocumentCheckbox(res, doc, f, meta, true, meta.key, canonical.ValueMap{"sexo": "H"},
		map[string]bool{}, map[string]bool{}, nil, nil)

	if f.holder["V"] != types.Name("Off") || f.widget["AS"] != types.Name("Off") {
		t.Fatalf("widget state = V %v AS %v, want Off/Off", f.holder["V"], f.widget["AS"])
	}
	if len(res.Unchecked) != 1 || res.Unchecked[0].Value != "Off" {
		t.Fatalf("Unchecked = %+v, want one Off record", res.Unchecked)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "rule_evaluated_false" {
		t.Fatalf("Skipped = %+v, want one rule_evaluated_false record", res.Skipped)
	}
}

func TestFillDocumentCheckboxRuleTrueChecks(t *testing.T) {
	e := New(nil)
	doc := &formDoc{}
	f := checkboxField("CASILLA_UE")
	meta := explicitMeta{key: "sexo", kind: mapping.KindCheckbox, matchValue: "M", rule: `sexo == "M"`}

	res := &Result{}
	e.fillDocumentCheckbox(res, doc, f, meta, true, meta.key, canonical.ValueMap{"sexo": "M"},
		map[string]bool{}, map[string]bool{}, nil, nil)

	if f.holder["V"] != types.Name("1") || f.widget["AS"] != types.Name("1") {
		t.Fatalf("widget state = V %v AS %v, want on-state", f.holder["V"], f.widget["AS"])
	}
	if len(res.Applied) != 1 || res.Applied[0].Source != "mapping" {
		t.Fatalf("Applied = %+v, want one mapping record", res.Applied)
	}
	if len(res.Skipped) != 0 || len(res.Unchecked) != 0 {
		t.Fatalf("unexpected skip records: %+v %+v", res.Skipped, res.Unchecked)
	}
}

func TestFillDocumentCheckboxUnparsableRuleFallsToInference(t *testing.T) {
	e := New(nil)
	doc := &formDoc{}
	f := checkboxField("M")
	meta := explicitMeta{key: "sexo", kind: mapping.KindCheckbox, matchValue: "M", rule: `sexo ~ M`}

	res := &Result{}
	e.fillDocumentCheckbox(res, doc, f, meta, true, meta.key, canonical.ValueMap{"sexo": "M"},
		map[string]bool{}, map[string]bool{}, nil, nil)

	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "rule_unparsable" {
		t.Fatalf("Skipped = %+v, want one rule_unparsable record", res.Skipped)
	}
	if f.holder["V"] != types.Name("1") {
		t.Fatalf("V = %v, want on-state from naming inference", f.holder["V"])
	}
	if len(res.Applied) != 1 || res.Applied[0].Source != "heuristic" {
		t.Fatalf("Applied = %+v, want one heuristic record", res.Applied)
	}
}
