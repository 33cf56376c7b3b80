// Package artifact recovers a completed form document from a driven browser
// page when the target hands it off through a download, a popup, a viewer
// tab or a raw network response instead of mutating the page in place.
//
// A Collector is attached while the page is being driven and records every
// signal a document handoff can leave behind; a Chain then walks an ordered
// list of recovery strategies until one yields validated document bytes.
package artifact

import (
	"context"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// capturedRequest is a document-producing request seen on the wire, kept
// replayable outside the browser.
type capturedRequest struct {
	Method   string
	URL      string
	PostData string
	Headers  map[string]string
}

// capturedResponse is a response whose content type or URL marked it as a
// document. The body is fetched lazily at recovery time; the driver keeps it
// addressable by request id.
type capturedResponse struct {
	RequestID proto.NetworkRequestID
	URL       string
}

// requestNeedles mark URLs whose requests are worth replaying: the fee
// form's download endpoint plus anything that names a document outright.
var requestNeedles = []string{"impresorellenardescargar", "descargar", ".pdf"}

// Collector observes one driven page for document handoff signals. Attach
// before driving, Close when the session ends.
type Collector struct {
	page    *rod.Page
	browser *rod.Browser
	cancel  context.CancelFunc

	waitDownload func() (dir string, info *proto.PageDownloadWillBegin)

	mu        sync.Mutex
	responses []capturedResponse
	requests  []capturedRequest
	popups    []proto.TargetTargetID
}

// NewCollector wires network and target events on the page and arms the
// browser-level download trap. The download directory is owned by rod.
func NewCollector(browser *rod.Browser, page *rod.Page, downloadDir string) (*Collector, error) {
	ctx, cancel := context.WithCancel(page.GetContext())
	c := &Collector{page: page, browser: browser, cancel: cancel}

	p := page.Context(ctx)
	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		cancel()
		return nil, err
	}

	wait := browser.WaitDownload(downloadDir)
	c.waitDownload = func() (string, *proto.PageDownloadWillBegin) {
		return downloadDir, wait()
	}

	go p.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			ctype := strings.ToLower(e.Response.MIMEType)
			url := e.Response.URL
			if strings.Contains(ctype, "application/pdf") || strings.HasSuffix(strings.ToLower(url), ".pdf") {
				c.mu.Lock()
				c.responses = append(c.responses, capturedResponse{RequestID: e.RequestID, URL: url})
				c.mu.Unlock()
			}
		},
		func(e *proto.NetworkRequestWillBeSent) {
			url := strings.ToLower(e.Request.URL)
			for _, needle := range requestNeedles {
				if strings.Contains(url, needle) {
					headers := map[string]string{}
					for k, v := range e.Request.Headers {
						headers[k] = v.Str()
					}
					c.mu.Lock()
					c.requests = append(c.requests, capturedRequest{
						Method:   e.Request.Method,
						URL:      e.Request.URL,
						PostData: e.Request.PostData,
						Headers:  headers,
					})
					c.mu.Unlock()
					return
				}
			}
		},
	)()

	// Popup tabs announce themselves at the browser level, not the page.
	go browser.Context(ctx).EachEvent(func(e *proto.TargetTargetCreated) {
		if e.TargetInfo.Type == "page" {
			c.mu.Lock()
			c.popups = append(c.popups, e.TargetInfo.TargetID)
			c.mu.Unlock()
		}
	})()

	return c, nil
}

// HandoffObserved reports whether any download signal was seen: a captured
// document response, a replayable request or a popup page.
func (c *Collector) HandoffObserved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses) > 0 || len(c.requests) > 0 || len(c.popups) > 0
}

func (c *Collector) snapshot() (responses []capturedResponse, requests []capturedRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	responses = append(responses, c.responses...)
	requests = append(requests, c.requests...)
	return responses, requests
}

// Close stops event consumption. The page itself is owned by the session.
func (c *Collector) Close() {
	c.cancel()
}
