package artifact

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/publicsuffix"
)

// manualDownloadTimeout bounds the wait for an operator-triggered download.
const manualDownloadTimeout = 10 * time.Minute

// Chain recovers a document using the signals a Collector gathered. The
// attempts run in a fixed order and the first validated document wins.
type Chain struct {
	log     *slog.Logger
	col     *Collector
	timeout time.Duration

	// Manual extends the download wait so an operator can finish a
	// CAPTCHA or confirmation dialog before the handoff fires.
	Manual bool
}

// NewChain builds a recovery chain over an attached collector.
func NewChain(logger *slog.Logger, col *Collector, timeout time.Duration) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Chain{log: logger, col: col, timeout: timeout}
}

// Acquire runs the strategies until one produces a validated document under
// outDir. On exhaustion it dumps the page state for diagnosis and returns
// ErrUnavailable (or ErrServerRejected when a response carried a known
// validation failure).
func (ch *Chain) Acquire(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: out dir: %w", err)
	}

	type attempt struct {
		name string
		run  func(context.Context, *rod.Page, string) (string, error)
	}
	attempts := []attempt{
		{"download_event", ch.fromDownloadEvent},
		{"network_responses", ch.fromResponses},
		{"request_replay", ch.fromReplay},
		{"candidate_pages", ch.fromCandidatePages},
		{"form_fetch", ch.fromFormFetch},
	}

	var rejection error
	for _, a := range attempts {
		out, err := a.run(ctx, page, outDir)
		if err == nil && out != "" {
			ch.log.Info("document recovered", "strategy", a.name, "path", out)
			return out, nil
		}
		if err != nil {
			if rejection == nil && isRejection(err) {
				rejection = err
			}
			ch.log.Warn("recovery strategy failed", "strategy", a.name, "error", err)
		}
	}

	dump, shot := ch.dumpPage(page, outDir, "download_timeout")
	if rejection != nil {
		return "", fmt.Errorf("%w (dump %s, screenshot %s)", rejection, dump, shot)
	}
	return "", fmt.Errorf("%w (dump %s, screenshot %s)", ErrUnavailable, dump, shot)
}

func isRejection(err error) bool {
	return errors.Is(err, ErrServerRejected)
}

// fromDownloadEvent waits for the browser download the collector armed. In
// manual mode the operator may still be solving a CAPTCHA, so the wait is
// generous.
func (ch *Chain) fromDownloadEvent(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	timeout := ch.timeout
	if ch.Manual && timeout < manualDownloadTimeout {
		timeout = manualDownloadTimeout
	}

	type result struct {
		dir  string
		guid string
	}
	done := make(chan result, 1)
	go func() {
		dir, info := ch.col.waitDownload()
		if info != nil {
			done <- result{dir: dir, guid: string(info.GUID)}
		}
	}()

	select {
	case r := <-done:
		data, err := os.ReadFile(filepath.Join(r.dir, r.guid))
		if err != nil {
			return "", fmt.Errorf("artifact: read download: %w", err)
		}
		return ch.persist(data, outDir, "document.pdf", "download")
	case <-time.After(timeout):
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// fromResponses pulls the bodies of document-like responses the page
// already received. Bodies only live while the driver keeps the session, so
// this runs before anything that navigates.
func (ch *Chain) fromResponses(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	responses, _ := ch.col.snapshot()
	for i, r := range responses {
		body, err := responseBody(page, r)
		if err != nil || len(body) == 0 {
			continue
		}
		if IsDocument(body) {
			return ch.persist(body, outDir, suggestedName(r.URL), "network_response")
		}
		dump := ch.dumpBody(body, outDir, fmt.Sprintf("network_response_%d", i+1))
		if msg := KnownServerError(body); msg != "" {
			return "", fmt.Errorf("%w: %s (dump %s)", ErrServerRejected, msg, dump)
		}
	}
	return "", nil
}

// fromReplay re-issues captured document requests through an isolated HTTP
// client carrying the browser's cookies.
func (ch *Chain) fromReplay(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	_, requests := ch.col.snapshot()
	if len(requests) == 0 {
		return "", nil
	}
	client, err := ch.isolatedClient(page)
	if err != nil {
		return "", err
	}
	for i, r := range requests {
		body, err := ch.replay(ctx, client, r)
		if err != nil || len(body) == 0 {
			continue
		}
		if IsDocument(body) {
			return ch.persist(body, outDir, fmt.Sprintf("replay_%d.pdf", i+1), "request_replay")
		}
		dump := ch.dumpBody(body, outDir, fmt.Sprintf("replay_response_%d", i+1))
		if msg := KnownServerError(body); msg != "" {
			return "", fmt.Errorf("%w: %s (dump %s)", ErrServerRejected, msg, dump)
		}
	}
	return "", nil
}

// fromCandidatePages inspects every open page: direct fetch of its URL
// through the isolated client, then in-page extraction of blob and
// embedded-viewer sources.
func (ch *Chain) fromCandidatePages(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	candidates := []*rod.Page{page}
	if pages, err := ch.col.browser.Pages(); err == nil {
		for _, p := range pages {
			if p.TargetID != page.TargetID {
				candidates = append(candidates, p)
			}
		}
	}

	client, err := ch.isolatedClient(page)
	if err != nil {
		return "", err
	}
	for _, cand := range candidates {
		info, err := cand.Info()
		if err != nil {
			continue
		}
		u := info.URL
		if u != "" && !strings.HasPrefix(u, "about:") && !strings.HasPrefix(u, "blob:") {
			if body := ch.fetchRaw(ctx, client, u); IsDocument(body) {
				return ch.persist(body, outDir, suggestedName(u), "candidate_page")
			}
		}
		if body := ch.extractEmbedded(ctx, cand); IsDocument(body) {
			return ch.persist(body, outDir, "document.pdf", "embedded_viewer")
		}
	}
	return "", nil
}

const extractEmbeddedJS = `async () => {
	const candidates = [];
	if (location.href && location.href.startsWith("blob:")) candidates.push(location.href);
	const emb = document.querySelector("embed[src], object[data], iframe[src]");
	if (emb) {
		const src = emb.getAttribute("src") || emb.getAttribute("data");
		if (src) candidates.push(src);
	}
	for (const src of candidates) {
		try {
			const res = await fetch(src);
			if (!res.ok) continue;
			const buf = await res.arrayBuffer();
			const bytes = new Uint8Array(buf);
			let binary = "";
			const chunk = 0x8000;
			for (let i = 0; i < bytes.length; i += chunk) {
				binary += String.fromCharCode(...bytes.subarray(i, i + chunk));
			}
			return btoa(binary);
		} catch (e) {}
	}
	return "";
}`

func (ch *Chain) extractEmbedded(ctx context.Context, page *rod.Page) []byte {
	r, err := page.Context(ctx).Timeout(ch.timeout).Eval(extractEmbeddedJS)
	if err != nil {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(r.Value.Str())
	if err != nil {
		return nil
	}
	return data
}

const formFetchJS = `async () => {
	const form = document.querySelector("form");
	if (!form) return JSON.stringify({ ok: false });
	const action = form.getAttribute("action") || window.location.href;
	const method = (form.getAttribute("method") || "POST").toUpperCase();
	const fd = new FormData(form);
	const params = new URLSearchParams();
	for (const [k, v] of fd.entries()) params.append(k, String(v));
	const resp = await fetch(action, {
		method,
		headers: { "Content-Type": "application/x-www-form-urlencoded; charset=UTF-8" },
		body: params.toString(),
		credentials: "same-origin",
	});
	const buf = await resp.arrayBuffer();
	const bytes = new Uint8Array(buf);
	let binary = "";
	const chunk = 0x8000;
	for (let i = 0; i < bytes.length; i += chunk) {
		binary += String.fromCharCode(...bytes.subarray(i, i + chunk));
	}
	return JSON.stringify({ ok: resp.ok, status: resp.status, b64: btoa(binary) });
}`

// fromFormFetch re-submits the page's form from inside the page and
// captures the raw response. Last resort: it repeats the submission, which
// these targets tolerate.
func (ch *Chain) fromFormFetch(ctx context.Context, page *rod.Page, outDir string) (string, error) {
	r, err := page.Context(ctx).Timeout(ch.timeout).Eval(formFetchJS)
	if err != nil {
		return "", nil
	}
	var out struct {
		OK     bool   `json:"ok"`
		Status int    `json:"status"`
		B64    string `json:"b64"`
	}
	if err := json.Unmarshal([]byte(r.Value.Str()), &out); err != nil || out.B64 == "" {
		return "", nil
	}
	body, err := base64.StdEncoding.DecodeString(out.B64)
	if err != nil {
		return "", nil
	}
	if IsDocument(body) {
		return ch.persist(body, outDir, "document.pdf", "form_fetch")
	}
	dump := ch.dumpBody(body, outDir, "form_fetch_response")
	if msg := KnownServerError(body); msg != "" {
		return "", fmt.Errorf("%w: %s (dump %s)", ErrServerRejected, msg, dump)
	}
	ch.log.Warn("form fetch returned non-document bytes", "status", out.Status, "dump", dump)
	return "", nil
}

// isolatedClient builds an HTTP client seeded with the page's cookies, so
// replays and direct fetches hit the target inside the browser's session.
func (ch *Chain) isolatedClient(page *rod.Page) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("artifact: cookie jar: %w", err)
	}
	cookies, err := page.Cookies(nil)
	if err == nil {
		byHost := map[string][]*http.Cookie{}
		for _, c := range cookies {
			byHost[c.Domain] = append(byHost[c.Domain], &http.Cookie{
				Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain,
			})
		}
		for host, hostCookies := range byHost {
			u := &url.URL{Scheme: "https", Host: strings.TrimPrefix(host, ".")}
			jar.SetCookies(u, hostCookies)
		}
	}
	return &http.Client{Jar: jar, Timeout: ch.timeout}, nil
}

func (ch *Chain) replay(ctx context.Context, client *http.Client, r capturedRequest) ([]byte, error) {
	var bodyReader io.Reader
	if r.PostData != "" {
		bodyReader = strings.NewReader(r.PostData)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Headers {
		switch strings.ToLower(k) {
		case "content-type", "referer", "user-agent", "origin":
			req.Header.Set(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}

func (ch *Chain) fetchRaw(ctx context.Context, client *http.Client, u string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil
	}
	return body
}

// persist validates and writes recovered bytes, rejecting HTML posing as a
// document.
func (ch *Chain) persist(data []byte, outDir, name, strategy string) (string, error) {
	if !IsDocument(data) || LooksLikeHTML(data) {
		dump := ch.dumpBody(data, outDir, strategy+"_invalid")
		return "", fmt.Errorf("artifact: %s produced non-document bytes (dump %s)", strategy, dump)
	}
	out := filepath.Join(outDir, name)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write document: %w", err)
	}
	return out, nil
}

func (ch *Chain) dumpBody(data []byte, outDir, prefix string) string {
	p := filepath.Join(outDir, fmt.Sprintf("%s_%s.bin", time.Now().Format("20060102_150405"), prefix))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return ""
	}
	return p
}

// dumpPage saves the live DOM and a screenshot next to the artifacts so an
// operator can see what the page looked like when recovery gave up.
func (ch *Chain) dumpPage(page *rod.Page, outDir, prefix string) (dump, shot string) {
	stamp := time.Now().Format("20060102_150405")
	if html, err := page.HTML(); err == nil {
		p := filepath.Join(outDir, fmt.Sprintf("%s_%s.html", stamp, prefix))
		if os.WriteFile(p, []byte(html), 0o644) == nil {
			dump = p
		}
	}
	if img, err := page.Screenshot(false, nil); err == nil {
		p := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", stamp, prefix))
		if os.WriteFile(p, img, 0o644) == nil {
			shot = p
		}
	}
	return dump, shot
}

func suggestedName(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		if name := path.Base(parsed.Path); strings.HasSuffix(strings.ToLower(name), ".pdf") {
			return name
		}
	}
	return "document.pdf"
}

func responseBody(page *rod.Page, r capturedResponse) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: r.RequestID}.Call(page)
	if err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return base64.StdEncoding.DecodeString(res.Body)
	}
	return []byte(res.Body), nil
}
