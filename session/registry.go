// Package session manages stateful browser sessions: a registry owning one
// shared rod browser, a single-worker dispatcher serializing every
// browser-driving call, and the open/state/fill/inspect/close operations
// composing the fill engine, the mapping store and the artifact chain.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/hazyhaar/formfill/artifact"
	"github.com/hazyhaar/formfill/fill"
	"github.com/hazyhaar/formfill/mapping"
)

// ErrNotFound means the session id is not registered. Closed sessions stay
// registered until Close, so a finished-but-known session never hits this.
var ErrNotFound = errors.New("session: not found")

// Session is one stateful browser session bound to a target URL. The page
// and its incognito context are exclusively owned; the mutex serializes
// Fill/Inspect/Close against each other for this session.
type Session struct {
	ID        string
	TargetURL string
	CreatedAt time.Time

	mu     sync.Mutex
	page   *rod.Page
	col    *artifact.Collector
	closed bool
}

// State is the externally visible session status.
type State struct {
	Alive      bool   `json:"alive"`
	CurrentURL string `json:"current_url"`
	Title      string `json:"title"`
}

// Registry owns the shared browser and the session table. All
// browser-touching work is submitted to a single worker goroutine: the
// driver is not safe for concurrent multi-goroutine access, so operations
// on different sessions serialize at the driver level too.
type Registry struct {
	cfg    Config
	log    *slog.Logger
	engine *fill.Engine
	store  *mapping.Store

	mu       sync.Mutex
	sessions map[string]*Session
	browser  *rod.Browser
	lnch     *launcher.Launcher
	refs     int

	work   chan func()
	closed chan struct{}
	once   sync.Once
}

// NewRegistry creates a session registry. The store may be nil when template
// lookup is not wanted; the browser is launched lazily by the first Open.
func NewRegistry(cfg Config, store *mapping.Store) *Registry {
	cfg.defaults()
	r := &Registry{
		cfg:      cfg,
		log:      cfg.Logger,
		engine:   fill.New(cfg.Logger),
		store:    store,
		sessions: make(map[string]*Session),
		work:     make(chan func(), 16),
		closed:   make(chan struct{}),
	}
	go r.worker()
	return r
}

func (r *Registry) worker() {
	for {
		select {
		case fn := <-r.work:
			fn()
		case <-r.closed:
			return
		}
	}
}

// do submits fn to the worker and waits for it. The context only abandons
// the wait: a running browser call is never preempted mid-flight.
func (r *Registry) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	wrapped := func() { done <- fn() }
	select {
	case r.work <- wrapped:
	case <-r.closed:
		return fmt.Errorf("session: registry closed")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenOptions tune a single Open call. Headful and SlowMotion only take
// effect when this call is the one that launches the shared browser.
type OpenOptions struct {
	Headful    bool
	SlowMotion time.Duration
	NavTimeout time.Duration
}

// Open launches the shared browser if needed, creates a stealth page in an
// isolated incognito context, attaches dialog observation, navigates to the
// target and registers the session.
func (r *Registry) Open(ctx context.Context, target string, opts OpenOptions) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = r.cfg.NavTimeout
	}
	s := &Session{
		ID:        uuid.NewString(),
		TargetURL: target,
		CreatedAt: time.Now(),
	}
	err := r.do(ctx, func() error {
		b, err := r.acquireBrowser(opts)
		if err != nil {
			return err
		}
		incog, err := b.Incognito()
		if err != nil {
			r.releaseBrowser()
			return fmt.Errorf("session: incognito context: %w", err)
		}
		page, err := stealth.Page(incog)
		if err != nil {
			r.releaseBrowser()
			return fmt.Errorf("session: create page: %w", err)
		}
		r.observeDialogs(page, s.ID)
		col, err := artifact.NewCollector(incog, page, r.cfg.OutDir)
		if err != nil {
			r.log.Warn("session: network collector unavailable", "session", s.ID, "error", err)
		}
		if err := r.navigate(page, target, opts.NavTimeout); err != nil {
			page.Close()
			r.releaseBrowser()
			return err
		}
		s.page = page
		s.col = col
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.log.Info("session: opened", "session", s.ID, "target", target)
	return s, nil
}

// observeDialogs logs native dialogs without answering them. Auto-dismissal
// would silently break payment confirmations, so the dialog stays up for a
// manual operator.
func (r *Registry) observeDialogs(page *rod.Page, id string) {
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		r.log.Info("session: dialog opened",
			"session", id, "type", string(e.Type), "message", e.Message)
	})()
}

// navigate runs the tiered wait: content-loaded first, then full load, then
// bare commit. A document hand-off aborts navigation after commit, so
// ERR_ABORTED is accepted when the target looks like a document or the page
// URL already moved off about:blank.
func (r *Registry) navigate(page *rod.Page, target string, timeout time.Duration) error {
	pt := page.Timeout(timeout)
	waitDOM := pt.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pt.Navigate(target); err != nil {
		if isAbortedNavigation(err) && (looksLikeDocumentURL(target) || committedURL(page) != "") {
			r.log.Info("session: navigation aborted by document hand-off", "target", target)
			return nil
		}
		return fmt.Errorf("session: navigate %s: %w", target, err)
	}
	waitDOM()
	if committedURL(page) != "" {
		return nil
	}
	page.Timeout(timeout / 2).WaitNavigation(proto.PageLifecycleEventNameLoad)()
	if committedURL(page) != "" {
		return nil
	}
	// Commit-level fallback: some targets keep loading forever but the
	// document is already usable.
	if info, err := page.Info(); err == nil && info.URL != "" {
		return nil
	}
	return fmt.Errorf("session: navigate %s: no navigation commit within %s", target, timeout)
}

// committedURL returns the page URL once navigation moved off about:blank.
func committedURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info.URL == "" || info.URL == "about:blank" {
		return ""
	}
	return info.URL
}

func isAbortedNavigation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "net::ERR_ABORTED")
}

func looksLikeDocumentURL(target string) bool {
	t := strings.ToLower(target)
	if i := strings.IndexAny(t, "?#"); i >= 0 {
		return strings.HasSuffix(t[:i], ".pdf") || strings.Contains(t[i:], ".pdf")
	}
	return strings.HasSuffix(t, ".pdf")
}

// State reports the session status. Unknown ids fail with ErrNotFound; a
// closed-but-known session reports alive=false.
func (r *Registry) State(ctx context.Context, id string) (State, error) {
	s, err := r.lookup(id)
	if err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return State{Alive: false, CurrentURL: s.TargetURL}, nil
	}
	var st State
	err = r.do(ctx, func() error {
		info, err := s.page.Info()
		if err != nil {
			st = State{Alive: false, CurrentURL: s.TargetURL}
			return nil
		}
		st = State{Alive: true, CurrentURL: info.URL, Title: info.Title}
		return nil
	})
	return st, err
}

// Close releases the session's page and context, removes it from the
// registry and stops the shared browser once no session remains. The
// per-session lock makes Close wait for an in-flight fill.
func (r *Registry) Close(ctx context.Context, id string) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		err = r.do(ctx, func() error {
			if s.col != nil {
				s.col.Close()
			}
			if s.page != nil {
				if cerr := s.page.Close(); cerr != nil {
					r.log.Warn("session: page close failed", "session", id, "error", cerr)
				}
			}
			r.releaseBrowser()
			return nil
		})
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.log.Info("session: closed", "session", id)
	return err
}

// Shutdown closes every session and stops the worker.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil {
			r.log.Warn("session: shutdown close failed", "session", id, "error", err)
		}
	}
	r.once.Do(func() { close(r.closed) })
}

func (r *Registry) lookup(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// acquireBrowser lazily launches the shared browser and bumps the refcount.
// Worker-only: never call outside a dispatched task.
func (r *Registry) acquireBrowser(opts OpenOptions) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		r.refs++
		return r.browser, nil
	}
	headful := opts.Headful || r.cfg.Headful
	l := launcher.New().
		Headless(!headful).
		Set("disable-blink-features", "AutomationControlled")
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("session: launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if slow := opts.SlowMotion; slow > 0 {
		b = b.SlowMotion(slow)
	} else if r.cfg.SlowMotion > 0 {
		b = b.SlowMotion(r.cfg.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("session: connect browser: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		r.log.Warn("session: ignore cert errors failed", "error", err)
	}
	r.browser = b
	r.lnch = l
	r.refs = 1
	r.log.Info("session: browser launched", "headful", headful)
	return b, nil
}

// releaseBrowser drops one reference and stops the browser at zero.
func (r *Registry) releaseBrowser() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return
	}
	r.refs--
	if r.refs > 0 {
		return
	}
	if err := r.browser.Close(); err != nil {
		r.log.Warn("session: browser close failed", "error", err)
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
	}
	r.browser = nil
	r.lnch = nil
	r.refs = 0
	r.log.Info("session: browser stopped")
}
