package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ErrNotFound is returned when no template exists for a target.
var ErrNotFound = errors.New("mapping: template not found")

const schema = `
CREATE TABLE IF NOT EXISTS form_templates (
	host            TEXT    NOT NULL,
	path            TEXT    NOT NULL,
	source          TEXT    NOT NULL DEFAULT 'user',
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL,
	fields_snapshot TEXT    NOT NULL DEFAULT '[]',
	fields_count    INTEGER NOT NULL DEFAULT 0,
	mappings        TEXT    NOT NULL DEFAULT '[]',
	mappings_count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (host, path)
);
CREATE INDEX IF NOT EXISTS idx_form_templates_updated ON form_templates(updated_at);
`

// Store persists mapping templates in SQLite, one row per normalized
// (host, path). No revision history is kept: a save overwrites the previous
// template for the same target, carrying only created_at forward.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the template database at path. The caller must
// blank-import an SQLite driver, e.g.:
//
//	import _ "modernc.org/sqlite"
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mapping: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("mapping: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mapping: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory store for testing and registers cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("mapping.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// NormalizeTarget reduces a target URL to the (host, path) template key.
// Host and path are lowercased; an empty path becomes "/".
func NormalizeTarget(target string) (host, path string) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return "", ""
	}
	host = strings.ToLower(u.Host)
	path = strings.ToLower(u.Path)
	if path == "" {
		path = "/"
	}
	return host, path
}

// GetLatest returns the template for the target URL's (host, path), or
// ErrNotFound when none was ever saved.
func (s *Store) GetLatest(ctx context.Context, target string) (*Template, error) {
	host, path := NormalizeTarget(target)
	if host == "" {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT source, created_at, updated_at, fields_snapshot, fields_count, mappings, mappings_count
		FROM form_templates WHERE host = ? AND path = ?`, host, path)

	var (
		tpl                  Template
		createdAt, updatedAt int64
		fieldsJSON, mapsJSON string
	)
	err := row.Scan(&tpl.Source, &createdAt, &updatedAt, &fieldsJSON, &tpl.FieldsCount, &mapsJSON, &tpl.MappingsCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mapping: get latest: %w", err)
	}
	tpl.Host = host
	tpl.Path = path
	tpl.CreatedAt = time.Unix(createdAt, 0).UTC()
	tpl.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := json.Unmarshal([]byte(fieldsJSON), &tpl.FieldsSnapshot); err != nil {
		return nil, fmt.Errorf("mapping: decode fields snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(mapsJSON), &tpl.Mappings); err != nil {
		return nil, fmt.Errorf("mapping: decode mappings: %w", err)
	}
	return &tpl, nil
}

// Save validates and stores the template for the target URL, replacing any
// existing row for the same (host, path). Invalid mappings are dropped
// silently; created_at of a previous save is carried forward.
func (s *Store) Save(ctx context.Context, target string, fields []FieldDescriptor, mappings []FieldMapping, source string) (*Template, error) {
	host, path := NormalizeTarget(target)
	if host == "" {
		return nil, fmt.Errorf("mapping: target URL is required for template save")
	}
	if source == "" {
		source = "user"
	}
	if fields == nil {
		fields = []FieldDescriptor{}
	}

	normalized := Normalize(mappings)
	now := time.Now().UTC().Truncate(time.Second)

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("mapping: encode fields snapshot: %w", err)
	}
	mapsJSON, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("mapping: encode mappings: %w", err)
	}

	// The upsert leaves created_at untouched on conflict, so it survives
	// from the original save.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_templates
			(host, path, source, created_at, updated_at, fields_snapshot, fields_count, mappings, mappings_count)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(host, path) DO UPDATE SET
			source          = excluded.source,
			updated_at      = excluded.updated_at,
			fields_snapshot = excluded.fields_snapshot,
			fields_count    = excluded.fields_count,
			mappings        = excluded.mappings,
			mappings_count  = excluded.mappings_count`,
		host, path, source, now.Unix(), now.Unix(),
		string(fieldsJSON), len(fields), string(mapsJSON), len(normalized))
	if err != nil {
		return nil, fmt.Errorf("mapping: save template: %w", err)
	}

	return s.GetLatest(ctx, target)
}
