package fill

import (
	"testing"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

func box(name, kind string, x0, y0, x1, y1 float64) *docField {
	return &docField{Name: name, Kind: kind, Rect: mapping.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestIdentitySplitMap(t *testing.T) {
	fields := []*docField{
		box("letter_left", widgetText, 10, 100, 40, 115),
		box("digits", widgetText, 50, 102, 200, 117),
		box("letter_right", widgetText, 210, 100, 240, 115),
		box("unrelated", widgetText, 10, 300, 200, 315),
	}
	keyByField := map[string]string{
		"letter_left":  "nif_nie",
		"digits":       "nif_nie",
		"letter_right": "nif_nie",
	}
	values := canonical.ValueMap{
		"nif_nie_prefix": "X",
		"nif_nie_number": "1234567",
		"nif_nie_suffix": "Z",
	}

	got := identitySplitMap(fields, keyByField, values)
	want := map[string]string{
		"letter_left":  "nif_nie_prefix",
		"digits":       "nif_nie_number",
		"letter_right": "nif_nie_suffix",
	}
	if len(got) != len(want) {
		t.Fatalf("identitySplitMap = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %q mapped to %q, want %q", k, got[k], v)
		}
	}
}

func TestIdentitySplitMapNeedsAllParts(t *testing.T) {
	fields := []*docField{
		box("a", widgetText, 10, 100, 40, 115),
		box("b", widgetText, 50, 100, 200, 115),
		box("c", widgetText, 210, 100, 240, 115),
	}
	keyByField := map[string]string{"a": "nif_nie", "b": "nif_nie", "c": "nif_nie"}
	values := canonical.ValueMap{"nif_nie_number": "1234567"}
	if got := identitySplitMap(fields, keyByField, values); got != nil {
		t.Fatalf("expected no inference without all three parts, got %v", got)
	}
}

func TestDateSplitValues(t *testing.T) {
	fields := []*docField{
		box("d", widgetText, 10, 500, 40, 515),
		box("m", widgetText, 50, 510, 80, 525),
		box("y", widgetText, 90, 505, 150, 520),
	}
	keyByField := map[string]string{"d": "fecha", "m": "fecha", "y": "fecha"}
	values := canonical.ValueMap{"fecha": "02/07/2025"}

	got := dateSplitValues(fields, keyByField, values)
	if got["d"] != "02" || got["m"] != "07" || got["y"] != "2025" {
		t.Fatalf("dateSplitValues = %v", got)
	}
}

func TestCheckboxGroupTargets(t *testing.T) {
	fields := []*docField{
		box("X", widgetCheckbox, 10, 100, 20, 110),
		box("H", widgetCheckbox, 60, 105, 70, 115),
		box("M", widgetCheckbox, 110, 100, 120, 110),
	}
	names := map[string]bool{"X": true, "H": true, "M": true}

	got := checkboxGroupTargets(fields, names, []string{"X", "H", "M"}, "M", true)
	if got["X"] || got["H"] || !got["M"] {
		t.Fatalf("sexo M selection wrong: %v", got)
	}
}

func TestCheckboxGroupPositionalEstadoCivil(t *testing.T) {
	// Widget names carry no state letters; only the left-to-right position
	// on the row decides which logical state each box represents.
	fields := []*docField{
		box("casilla_b", widgetCheckbox, 50, 200, 60, 210),
		box("casilla_a", widgetCheckbox, 10, 200, 20, 210),
		box("casilla_c", widgetCheckbox, 90, 200, 100, 210),
	}
	names := map[string]bool{"casilla_a": true, "casilla_b": true, "casilla_c": true}

	got := checkboxGroupTargets(fields, names, []string{"S", "C", "V", "D", "SP"}, "C", false)
	if got["casilla_a"] || !got["casilla_b"] || got["casilla_c"] {
		t.Fatalf("estado_civil C selection wrong: %v", got)
	}
}

func TestCheckboxGroupTwoWidgetSexFallback(t *testing.T) {
	// Templates exposing only H/M boxes map left->H, right->M even when
	// the logical order starts with X.
	fields := []*docField{
		box("left", widgetCheckbox, 10, 100, 20, 110),
		box("right", widgetCheckbox, 60, 100, 70, 110),
	}
	names := map[string]bool{"left": true, "right": true}

	got := checkboxGroupTargets(fields, names, []string{"X", "H", "M"}, "H", true)
	if !got["left"] || got["right"] {
		t.Fatalf("two-widget fallback wrong: %v", got)
	}
}

func TestCheckboxGroupIgnoresOtherRows(t *testing.T) {
	fields := []*docField{
		box("S", widgetCheckbox, 10, 100, 20, 110),
		box("C", widgetCheckbox, 60, 100, 70, 110),
		box("V", widgetCheckbox, 110, 100, 120, 110),
		box("D", widgetCheckbox, 160, 100, 170, 110),
		box("SP", widgetCheckbox, 210, 100, 220, 110),
		box("noise", widgetCheckbox, 10, 400, 20, 410),
	}
	names := map[string]bool{"S": true, "C": true, "V": true, "D": true, "SP": true, "noise": true}

	got := checkboxGroupTargets(fields, names, []string{"S", "C", "V", "D", "SP"}, "V", false)
	if _, ok := got["noise"]; ok {
		t.Fatalf("widget on another row should be outside the group: %v", got)
	}
	if !got["V"] || got["S"] || got["C"] || got["D"] || got["SP"] {
		t.Fatalf("estado_civil V selection wrong: %v", got)
	}
}
