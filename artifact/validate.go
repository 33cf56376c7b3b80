package artifact

import (
	"bytes"
	"errors"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	// ErrUnavailable means every recovery strategy was exhausted without
	// producing a validated document.
	ErrUnavailable = errors.New("artifact: document unavailable")

	// ErrServerRejected means the target returned a recognizable
	// validation or CAPTCHA failure instead of the document. Retrying
	// without operator action will fail again.
	ErrServerRejected = errors.New("artifact: server rejected submission")
)

var documentSignature = []byte("%PDF")

// IsDocument reports whether the bytes start a well-formed document.
func IsDocument(data []byte) bool {
	return bytes.HasPrefix(data, documentSignature)
}

// LooksLikeHTML catches the most common failure shape: an error page saved
// where a document was expected.
func LooksLikeHTML(data []byte) bool {
	head := bytes.ToLower(data[:min(len(data), 512)])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html"))
}

// serverErrorMarkers map known response phrases to operator-facing messages.
// The body is converted to plain text first so markup inside the phrase
// cannot hide it.
var serverErrorMarkers = []struct {
	phrase  string
	message string
}{
	{"error en captcha", "the target reported an invalid or expired CAPTCHA; solve the new one and retry"},
	{"debe introducir una forma de pago", "the target reported a missing payment method selection"},
	{"debe seleccionar uno de los trámites", "the target reported a missing procedure selection"},
}

// KnownServerError inspects a rejected body for known validation phrases.
// Returns "" when none match.
func KnownServerError(body []byte) string {
	text := string(body)
	if md, err := htmltomarkdown.ConvertString(text); err == nil {
		text = md
	}
	normalized := strings.ToLower(text)
	for _, m := range serverErrorMarkers {
		if strings.Contains(normalized, m.phrase) {
			return m.message
		}
	}
	return ""
}
