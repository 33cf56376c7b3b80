// Package httpapi exposes the session and template operations over a thin
// chi router. Handlers decode JSON, call the session registry or the
// template store, and map the error taxonomy to status codes; no business
// logic lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/formfill/artifact"
	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/fill"
	"github.com/hazyhaar/formfill/mapping"
	"github.com/hazyhaar/formfill/session"
)

// Service wires the registry and the template store into HTTP handlers.
type Service struct {
	log   *slog.Logger
	reg   *session.Registry
	store *mapping.Store
}

// New creates the HTTP service. The store may be nil; template routes then
// answer 404.
func New(logger *slog.Logger, reg *session.Registry, store *mapping.Store) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{log: logger, reg: reg, store: store}
}

// RegisterHTTP mounts the routes on the router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/sessions", s.handleOpen)
	r.Get("/api/v1/sessions/{session_id}", s.handleState)
	r.Post("/api/v1/sessions/{session_id}/fill", s.handleFill)
	r.Post("/api/v1/sessions/{session_id}/inspect", s.handleInspect)
	r.Delete("/api/v1/sessions/{session_id}", s.handleClose)
	r.Get("/api/v1/templates", s.handleGetTemplate)
	r.Put("/api/v1/templates", s.handlePutTemplate)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, mapping.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fill.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, fill.ErrNotForm),
		errors.Is(err, fill.ErrRequiredFieldUnresolved),
		errors.Is(err, artifact.ErrServerRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, artifact.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

type openRequest struct {
	TargetURL    string `json:"target_url"`
	Headful      bool   `json:"headful"`
	SlowMotionMs int    `json:"slow_motion_ms"`
	NavTimeoutMs int    `json:"nav_timeout_ms"`
}

type openResponse struct {
	SessionID string `json:"session_id"`
	TargetURL string `json:"target_url"`
}

func (s *Service) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetURL == "" {
		http.Error(w, "target_url required", http.StatusBadRequest)
		return
	}
	sess, err := s.reg.Open(r.Context(), req.TargetURL, session.OpenOptions{
		Headful:    req.Headful,
		SlowMotion: time.Duration(req.SlowMotionMs) * time.Millisecond,
		NavTimeout: time.Duration(req.NavTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		s.log.Error("httpapi: open failed", "target", req.TargetURL, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, openResponse{SessionID: sess.ID, TargetURL: sess.TargetURL})
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	st, err := s.reg.State(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type fillRequest struct {
	Payload   canonical.ApplicantPayload `json:"payload"`
	OutDir    string                     `json:"out_dir"`
	Strict    bool                       `json:"strict"`
	TimeoutMs int                        `json:"timeout_ms"`
	Mappings  []mapping.FieldMapping     `json:"mappings"`
}

type fillResponse struct {
	Result *fill.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (s *Service) handleFill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	var req fillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.reg.Fill(r.Context(), id, req.Payload, session.FillOptions{
		OutDir:   req.OutDir,
		Strict:   req.Strict,
		Timeout:  time.Duration(req.TimeoutMs) * time.Millisecond,
		Mappings: mapping.Normalize(req.Mappings),
	})
	if err != nil {
		s.log.Error("httpapi: fill failed", "session", id, "error", err)
		// A fill can fail after partial progress; the partial result is
		// still useful for diagnosis.
		writeJSON(w, statusFor(err), fillResponse{Result: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, fillResponse{Result: res})
}

type inspectRequest struct {
	Payload canonical.ApplicantPayload `json:"payload"`
	Hints   map[string]string          `json:"hints"`
}

func (s *Service) handleInspect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	var req inspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	insp, err := s.reg.InspectFields(r.Context(), id, req.Payload, req.Hints)
	if err != nil {
		s.log.Error("httpapi: inspect failed", "session", id, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (s *Service) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if err := s.reg.Close(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "url query parameter required", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		s.writeError(w, mapping.ErrNotFound)
		return
	}
	tpl, err := s.store.GetLatest(r.Context(), target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

type putTemplateRequest struct {
	TargetURL string                    `json:"target_url"`
	Fields    []mapping.FieldDescriptor `json:"fields"`
	Mappings  []mapping.FieldMapping    `json:"mappings"`
	Source    string                    `json:"source"`
}

func (s *Service) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	var req putTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetURL == "" {
		http.Error(w, "target_url required", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "template store disabled", http.StatusNotFound)
		return
	}
	tpl, err := s.store.Save(r.Context(), req.TargetURL, req.Fields, req.Mappings, req.Source)
	if err != nil {
		s.log.Error("httpapi: template save failed", "target", req.TargetURL, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}
