// Package fill is the form-target resolution and document-fill engine.
//
// Given a target (an interactive HTML page driven through Rod, or a document
// resource such as an AcroForm PDF) and a canonical value map, the engine
// decides the execution strategy, applies explicit/template field mappings,
// reconstructs split and composite fields (identity-number triplets, date
// triplets, geometric checkbox groups), and outside strict mode runs a
// chain of naming-convention adapters for everything not yet filled.
//
// The engine never invents values: unmatched fields stay blank, and adapter
// failures are logged per adapter, never propagated.
package fill

import (
	"log/slog"
	"net/http"
	"time"
)

// userAgent is sent on classification probes and document fetches. Some
// portals reject default Go client strings outright.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Engine executes fill operations. Safe for use from a single goroutine at a
// time per target; the session layer serializes calls.
type Engine struct {
	log    *slog.Logger
	client *http.Client
}

// New creates an Engine. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		log: logger,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Options control one fill or inspect call.
type Options struct {
	// OutDir is where artifacts (screenshot, snapshots, filled document)
	// are written. Required for fill calls.
	OutDir string

	// Strict disables every naming-convention heuristic and adapter,
	// leaving only explicit mappings and the structurally inferred
	// split-field/checkbox groups active.
	Strict bool

	// Timeout bounds element waits and document fetches.
	Timeout time.Duration

	// CaptureScreenshots and CaptureDOM enable the optional debug
	// artifacts for template building.
	CaptureScreenshots bool
	CaptureDOM         bool
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
}
