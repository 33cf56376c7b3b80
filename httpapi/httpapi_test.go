package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/formfill/mapping"
	"github.com/hazyhaar/formfill/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	store := mapping.OpenMemory(t)
	reg := session.NewRegistry(session.Config{Logger: log}, store)
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	r := chi.NewRouter()
	New(log, reg, store).RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestTemplateRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	put := map[string]any{
		"target_url": "https://sede.example.gob.es/tramite/790?lang=es",
		"source":     "operator",
		"mappings": []map[string]any{
			{"selector": "#nombre", "canonical_key": "nombre", "field_kind": "text"},
			{"selector": "", "canonical_key": "dropped", "field_kind": "text"},
		},
	}
	body, _ := json.Marshal(put)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/templates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /templates = %d", resp.StatusCode)
	}
	var saved mapping.Template
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved.MappingsCount != 1 {
		t.Fatalf("MappingsCount = %d, want 1 (invalid mapping dropped)", saved.MappingsCount)
	}

	get, err := http.Get(srv.URL + "/api/v1/templates?url=" + "https://sede.example.gob.es/tramite/790")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("GET /templates = %d", get.StatusCode)
	}
	var got mapping.Template
	if err := json.NewDecoder(get.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Host != "sede.example.gob.es" || len(got.Mappings) != 1 {
		t.Fatalf("unexpected template: %+v", got)
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/templates?url=https://example.org/none")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTemplateMissingURL(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/templates")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStateUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFillRejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/sessions/x/fill", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOpenRequiresTarget(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json",
		strings.NewReader(`{"target_url": ""}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
