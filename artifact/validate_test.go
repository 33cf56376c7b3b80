package artifact

import (
	"strings"
	"testing"
)

func TestIsDocument(t *testing.T) {
	if !IsDocument([]byte("%PDF-1.7 rest")) {
		t.Fatal("signature bytes should validate")
	}
	if IsDocument([]byte("<html><body>no</body></html>")) {
		t.Fatal("HTML must not validate")
	}
	if IsDocument(nil) {
		t.Fatal("empty must not validate")
	}
}

func TestLooksLikeHTML(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"<!DOCTYPE html><html>", true},
		{"   <HTML lang='es'>", true},
		{"%PDF-1.4", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := LooksLikeHTML([]byte(tc.in)); got != tc.want {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestKnownServerErrorSeesThroughMarkup(t *testing.T) {
	body := []byte(`<html><body><div class="err"><span>Error en captcha</span></div></body></html>`)
	msg := KnownServerError(body)
	if msg == "" || !strings.Contains(msg, "CAPTCHA") {
		t.Fatalf("captcha marker not detected across markup: %q", msg)
	}
}

func TestKnownServerErrorMarkers(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"Debe introducir una forma de pago", "payment"},
		{"debe seleccionar uno de los trámites", "procedure"},
		{"todo correcto", ""},
	}
	for _, tc := range cases {
		got := KnownServerError([]byte(tc.body))
		if tc.want == "" && got != "" {
			t.Errorf("KnownServerError(%q) = %q, want none", tc.body, got)
		}
		if tc.want != "" && !strings.Contains(got, tc.want) {
			t.Errorf("KnownServerError(%q) = %q, want mention of %q", tc.body, got, tc.want)
		}
	}
}

func TestSuggestedName(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.org/descargas/modelo790.pdf", "modelo790.pdf"},
		{"https://example.org/descargas/impreso?id=1", "document.pdf"},
		{"::bad::", "document.pdf"},
	}
	for _, tc := range cases {
		if got := suggestedName(tc.url); got != tc.want {
			t.Errorf("suggestedName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
