package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/formfill/artifact"
	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/fill"
	"github.com/hazyhaar/formfill/mapping"
)

// FillOptions tune one Fill call.
type FillOptions struct {
	// OutDir overrides the registry default for this call's artifacts.
	OutDir string

	// Strict disables the adapter chain and the name heuristic: only
	// explicit mappings write.
	Strict bool

	// Timeout bounds individual field interactions.
	Timeout time.Duration

	// Mappings are the explicit field mappings for this call. When empty
	// the latest stored template for the session's target is used instead.
	Mappings []mapping.FieldMapping
}

// Fill applies the payload to the session's target. The session's current
// page may itself be a document resource, or the original target may have
// been a document reached through a viewer interstitial; either case routes
// to the document strategy, everything else drives the live page. After a
// page fill that handed off a download, the artifact chain recovers the
// produced document.
func (r *Registry) Fill(ctx context.Context, id string, payload canonical.ApplicantPayload, opts FillOptions) (*fill.Result, error) {
	s, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return nil, fmt.Errorf("session: %s is closed: %w", id, ErrNotFound)
	}

	values := canonical.BuildValueMap(payload)
	mappings := opts.Mappings
	if len(mappings) == 0 && r.store != nil {
		if tpl, terr := r.store.GetLatest(ctx, s.TargetURL); terr == nil && tpl.MappingsCount > 0 {
			mappings = tpl.Mappings
			r.log.Info("session: using stored template",
				"session", id, "host", tpl.Host, "path", tpl.Path, "mappings", tpl.MappingsCount)
		} else if terr != nil && !errors.Is(terr, mapping.ErrNotFound) {
			r.log.Warn("session: template lookup failed", "session", id, "error", terr)
		}
	}

	fo := fill.Options{
		OutDir:             opts.OutDir,
		Strict:             opts.Strict,
		Timeout:            opts.Timeout,
		CaptureScreenshots: r.cfg.CaptureScreenshots,
		CaptureDOM:         r.cfg.CaptureDOM,
	}
	if fo.OutDir == "" {
		fo.OutDir = r.cfg.OutDir
	}
	if fo.Timeout <= 0 {
		fo.Timeout = r.cfg.FillTimeout
	}

	var res *fill.Result
	err = r.do(ctx, func() error {
		var ferr error
		res, ferr = r.fillDispatch(ctx, s, values, mappings, fo)
		return ferr
	})
	return res, err
}

func (r *Registry) fillDispatch(ctx context.Context, s *Session, values canonical.ValueMap, mappings []mapping.FieldMapping, fo fill.Options) (*fill.Result, error) {
	current := committedURL(s.page)
	if current == "" {
		current = s.TargetURL
	}

	if doc := r.resolveDocumentTarget(ctx, current, s.TargetURL); doc != "" {
		return r.engine.FillDocument(ctx, doc, values, mappings, fo)
	}

	res, err := r.engine.FillPage(ctx, s.page, current, values, mappings, fo)
	if err != nil {
		return res, err
	}
	if s.col != nil && s.col.HandoffObserved() {
		ch := artifact.NewChain(r.log, s.col, r.cfg.DownloadTimeout)
		ch.Manual = r.cfg.Manual
		path, aerr := ch.Acquire(ctx, s.page, fo.OutDir)
		if aerr != nil {
			res.Warnings = append(res.Warnings, aerr.Error())
			return res, aerr
		}
		res.Artifacts.Document = path
	}
	return res, nil
}

// resolveDocumentTarget decides whether the fill should run against a
// document URL instead of the live page. The current page wins when it is
// itself a document; otherwise the original target is classified, and as a
// last resort probed for a readable field tree (covers viewers that rewrite
// the URL before the page settles).
func (r *Registry) resolveDocumentTarget(ctx context.Context, current, target string) string {
	if t, err := r.engine.Classify(ctx, current); err == nil && t == fill.TargetDocument {
		return current
	}
	if current == target {
		return ""
	}
	if t, err := r.engine.Classify(ctx, target); err == nil && t == fill.TargetDocument {
		return target
	}
	data, err := r.engine.FetchDocument(ctx, target)
	if err != nil {
		return ""
	}
	if fields, err := fill.InspectDocument(data); err == nil && len(fields) > 0 {
		r.log.Info("session: original target carries a form field tree", "target", target)
		return target
	}
	return ""
}

// Inspection is the InspectFields result: the raw field descriptors plus
// confidence-scored canonical-key suggestions. Suggestions feed template
// building and are never used for unattended filling.
type Inspection struct {
	Mode        fill.Mode                 `json:"mode"`
	Fields      []mapping.FieldDescriptor `json:"fields"`
	Suggestions []fill.Suggestion         `json:"suggestions"`
	Unknown     []string                  `json:"unknown_tokens,omitempty"`
}

// InspectFields reads the session's form fields and suggests canonical-key
// mappings. Hints (selector to canonical key) override the heuristics.
// Placeholder tokens typed into the form beforehand are harvested as
// additional high-confidence hints.
func (r *Registry) InspectFields(ctx context.Context, id string, payload canonical.ApplicantPayload, hints map[string]string) (*Inspection, error) {
	s, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return nil, fmt.Errorf("session: %s is closed: %w", id, ErrNotFound)
	}

	values := canonical.BuildValueMap(payload)
	var out *Inspection
	err = r.do(ctx, func() error {
		var ierr error
		out, ierr = r.inspectDispatch(ctx, s, values, hints)
		return ierr
	})
	return out, err
}

func (r *Registry) inspectDispatch(ctx context.Context, s *Session, values canonical.ValueMap, hints map[string]string) (*Inspection, error) {
	current := committedURL(s.page)
	if current == "" {
		current = s.TargetURL
	}

	if doc := r.resolveDocumentTarget(ctx, current, s.TargetURL); doc != "" {
		data, err := r.engine.FetchDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		fields, err := fill.InspectDocument(data)
		if err != nil {
			return nil, err
		}
		merged, unknown := r.mergeHints(hints, func() ([]mapping.FieldMapping, []string, error) {
			return fill.PlaceholderMappingsFromDocument(data)
		})
		return &Inspection{
			Mode:        fill.ModeDocument,
			Fields:      fields,
			Suggestions: fill.SuggestMappings(fields, values, merged),
			Unknown:     unknown,
		}, nil
	}

	fields, err := fill.InspectPage(ctx, s.page)
	if err != nil {
		return nil, err
	}
	merged, unknown := r.mergeHints(hints, func() ([]mapping.FieldMapping, []string, error) {
		return fill.PlaceholderMappingsFromPage(ctx, s.page)
	})
	return &Inspection{
		Mode:        fill.ModePage,
		Fields:      fields,
		Suggestions: fill.SuggestMappings(fields, values, merged),
		Unknown:     unknown,
	}, nil
}

// mergeHints combines caller hints with placeholder-derived mappings.
// Caller hints win on selector collision.
func (r *Registry) mergeHints(hints map[string]string, harvest func() ([]mapping.FieldMapping, []string, error)) (map[string]string, []string) {
	merged := make(map[string]string, len(hints))
	var unknown []string
	if ms, unk, err := harvest(); err == nil {
		for _, m := range ms {
			merged[m.Selector] = m.CanonicalKey
		}
		unknown = unk
	} else {
		r.log.Warn("session: placeholder harvest failed", "error", err)
	}
	for sel, key := range hints {
		merged[sel] = key
	}
	return merged, unknown
}
