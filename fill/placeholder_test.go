package fill

import (
	"testing"
)

func TestCanonicalFromPlaceholder(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{nif_nie}", "nif_nie"},
		{"  {CP}  ", "cp"},
		{"{no_such_key}", ""},
		{"{nif_nie} extra", ""},
		{"plain text", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := canonicalFromPlaceholder(tc.in); got != tc.want {
			t.Errorf("canonicalFromPlaceholder(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlaceholderTokens(t *testing.T) {
	known, unknown := placeholderTokens("{tipo_via} {nombre_via}, {numero} {mystery} {tipo_via}")
	if len(known) != 3 || known[0] != "tipo_via" || known[1] != "nombre_via" || known[2] != "numero" {
		t.Fatalf("known = %v", known)
	}
	if len(unknown) != 1 || unknown[0] != "mystery" {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestCompositeKey(t *testing.T) {
	cases := []struct {
		keys []string
		want string
	}{
		{[]string{"tipo_via", "nombre_via"}, "domicilio_en_espana"},
		{[]string{"domicilio_en_espana", "numero"}, "domicilio_en_espana"},
		{[]string{"nombre", "primer_apellido"}, "nombre_apellidos"},
		{[]string{"cp", "municipio"}, "cp"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := compositeKey(tc.keys); got != tc.want {
			t.Errorf("compositeKey(%v) = %q, want %q", tc.keys, got, tc.want)
		}
	}
}
