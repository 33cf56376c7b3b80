package fill

import (
	"testing"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

func TestSuggestMappingsHintWins(t *testing.T) {
	fields := []mapping.FieldDescriptor{
		{Selector: "#campo1", Tag: "input", Type: "text", Label: "algo raro"},
	}
	values := canonical.ValueMap{"nif_nie": "X1234567Z"}
	hints := map[string]string{"#campo1": "nif_nie"}

	got := SuggestMappings(fields, values, hints)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions", len(got))
	}
	s := got[0]
	if s.CanonicalKey != "nif_nie" || s.Source != "learned" || s.Confidence != 0.99 {
		t.Fatalf("hint not honored: %+v", s)
	}
	if s.ValuePreview != "X1234567Z" {
		t.Fatalf("value preview = %q", s.ValuePreview)
	}
}

func TestSuggestMappingsPatternScoring(t *testing.T) {
	fields := []mapping.FieldDescriptor{
		{Selector: "#ape1", Tag: "input", Type: "text", Label: "Primer apellido", Name: "apellido1"},
		{Selector: "#prov", Tag: "select", Type: "", Label: "Provincia", Name: "provincia"},
		{Selector: "#bogus", Tag: "input", Type: "text", Label: "zzz", Name: "qqq"},
	}
	got := SuggestMappings(fields, canonical.ValueMap{}, nil)

	byselector := map[string]Suggestion{}
	for _, s := range got {
		byselector[s.Selector] = s
	}
	if s := byselector["#ape1"]; s.CanonicalKey != "primer_apellido" || s.Confidence <= 0 {
		t.Fatalf("apellido suggestion: %+v", s)
	}
	if s := byselector["#prov"]; s.CanonicalKey != "provincia" || s.FieldKind != "select" {
		t.Fatalf("provincia suggestion: %+v", s)
	}
	if s := byselector["#bogus"]; s.CanonicalKey != "" || s.Confidence != 0 {
		t.Fatalf("unmatched field should stay unbound: %+v", s)
	}
}

func TestSuggestMappingsNormalizedSignal(t *testing.T) {
	// The signal is collapsed to lowercase alphanumerics before scoring, so
	// every pattern must match on that form: "escolarización" must not leak
	// into escalera, and postal-code labels must score without separators.
	fields := []mapping.FieldDescriptor{
		{Selector: "#hijos", Tag: "input", Type: "checkbox", Label: "Hijas e hijos con escolarización en España"},
		{Selector: "#cp", Tag: "input", Type: "text", Label: "Código Postal", Name: "codigoPostal"},
	}
	got := SuggestMappings(fields, canonical.ValueMap{}, nil)

	byselector := map[string]Suggestion{}
	for _, s := range got {
		byselector[s.Selector] = s
	}
	if s := byselector["#hijos"]; s.CanonicalKey != "hijos_escolarizacion_espana" {
		t.Fatalf("escolarizacion suggestion: %+v", s)
	}
	if s := byselector["#cp"]; s.CanonicalKey != "cp" {
		t.Fatalf("postal code suggestion: %+v", s)
	}
}

func TestSuggestMappingsOrderedByPriority(t *testing.T) {
	fields := []mapping.FieldDescriptor{
		{Selector: "#tel", Tag: "input", Type: "text", Label: "Teléfono"},
		{Selector: "#doc", Tag: "input", Type: "text", Label: "NIF / NIE", Name: "nif"},
	}
	got := SuggestMappings(fields, canonical.ValueMap{}, nil)
	if len(got) != 2 {
		t.Fatalf("got %d suggestions", len(got))
	}
	if got[0].CanonicalKey != "nif_nie" {
		t.Fatalf("identity key should sort first, got %q", got[0].CanonicalKey)
	}
}

func TestSuggestMappingsCheckboxKind(t *testing.T) {
	fields := []mapping.FieldDescriptor{
		{Selector: "#sexo_h", Tag: "input", Type: "radio", Label: "Sexo Hombre", Name: "sexo"},
	}
	got := SuggestMappings(fields, canonical.ValueMap{}, nil)
	if got[0].FieldKind != "radio" || got[0].CanonicalKey != "sexo" {
		t.Fatalf("radio suggestion: %+v", got[0])
	}
}
