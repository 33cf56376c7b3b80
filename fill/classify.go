package fill

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// TargetType classifies a target URL into the strategy that should handle it.
type TargetType string

const (
	// TargetPage is an interactive HTML page to drive in the browser.
	TargetPage TargetType = "page"
	// TargetDocument is a standalone form document to fetch and fill.
	TargetDocument TargetType = "document"
)

// documentExtensions are URL path suffixes that settle classification without
// any network traffic.
var documentExtensions = []string{".pdf"}

// Classify decides whether a target URL is a document resource or an
// interactive page. Cheap checks run first: path extension, then known
// document-hosting URL shapes. Only when those are inconclusive does it probe
// the network, HEAD first and then a streamed GET that reads headers only.
// Probe failures are not fatal: an unreachable target classifies as a page
// and fails later with a concrete navigation error.
func (e *Engine) Classify(ctx context.Context, target string) (TargetType, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	if hasDocumentExtension(u) {
		return TargetDocument, nil
	}
	if isKnownDocumentHost(u) {
		return TargetDocument, nil
	}

	if tt, ok := e.probeHead(ctx, target); ok {
		return tt, nil
	}
	if tt, ok := e.probeGet(ctx, target); ok {
		return tt, nil
	}
	return TargetPage, nil
}

func hasDocumentExtension(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	for _, want := range documentExtensions {
		if ext == want {
			return true
		}
	}
	// Some portals hide the filename in a query parameter.
	q := strings.ToLower(u.RawQuery)
	return strings.Contains(q, ".pdf")
}

// isKnownDocumentHost recognizes URL shapes that always serve documents even
// though the path carries no extension, such as the inclusion.gob.es
// document repository.
func isKnownDocumentHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if strings.HasSuffix(host, "inclusion.gob.es") && strings.Contains(u.Path, "/documents/d/") {
		return true
	}
	return false
}

func (e *Engine) probeHead(ctx context.Context, target string) (TargetType, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		// Many servers reject HEAD; fall through to GET.
		return "", false
	}
	return classifyResponse(resp)
}

// probeGet issues a GET but never reads the body: the response headers and
// the redirect-resolved URL are enough, and documents can be large.
func (e *Engine) probeGet(ctx context.Context, target string) (TargetType, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return "", false
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1)) //nolint:errcheck
		resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", false
	}
	return classifyResponse(resp)
}

func classifyResponse(resp *http.Response) (TargetType, bool) {
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ctype, "application/pdf") {
		return TargetDocument, true
	}
	disp := strings.ToLower(resp.Header.Get("Content-Disposition"))
	if strings.Contains(disp, ".pdf") {
		return TargetDocument, true
	}
	// Redirects can land on the real file even when the original URL had
	// no extension.
	if resp.Request != nil && resp.Request.URL != nil {
		if strings.HasSuffix(strings.ToLower(resp.Request.URL.Path), ".pdf") {
			return TargetDocument, true
		}
	}
	if strings.Contains(ctype, "text/html") {
		return TargetPage, true
	}
	return "", false
}
