package mapping

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestSaveReplacesAndCarriesCreatedAt(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	target := "https://sede.example.gob.es/Tasas/Form?x=1"

	first, err := s.Save(ctx, target, nil, []FieldMapping{
		{Selector: "#nif", CanonicalKey: "nif_nie", FieldKind: KindText},
	}, "user")
	if err != nil {
		t.Fatal(err)
	}
	if first.MappingsCount != 1 {
		t.Fatalf("first save mappings_count = %d", first.MappingsCount)
	}

	time.Sleep(1100 * time.Millisecond)

	second, err := s.Save(ctx, target, nil, []FieldMapping{
		{Selector: "#nombre", CanonicalKey: "nombre", FieldKind: KindText},
		{Selector: "#cp", CanonicalKey: "cp", FieldKind: KindText},
	}, "learned")
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLatest(ctx, "https://sede.example.gob.es/tasas/form")
	if err != nil {
		t.Fatal(err)
	}
	if got.MappingsCount != 2 || len(got.Mappings) != 2 {
		t.Errorf("latest mappings_count = %d, want 2", got.MappingsCount)
	}
	if got.Source != "learned" {
		t.Errorf("source = %q, want learned", got.Source)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at = %v, want first save's %v", got.CreatedAt, first.CreatedAt)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("updated_at %v should be after created_at %v", got.UpdatedAt, got.CreatedAt)
	}
	_ = second
}

func TestGetLatestUnknownTarget(t *testing.T) {
	s := OpenMemory(t)
	if _, err := s.GetLatest(context.Background(), "https://nowhere.example/form"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetLatest(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("blank target err = %v, want ErrNotFound", err)
	}
}

func TestSaveDropsInvalidMappings(t *testing.T) {
	s := OpenMemory(t)
	tpl, err := s.Save(context.Background(), "https://a.example/f", nil, []FieldMapping{
		{Selector: "#ok", CanonicalKey: "nif_nie", FieldKind: KindText},
		{Selector: "", CanonicalKey: "nombre", FieldKind: KindText},              // no selector
		{Selector: "#chk", FieldKind: KindCheckbox, MatchValue: "X"},             // no checked_when
		{Selector: "#chk2", FieldKind: KindRadio, CheckedWhen: "sexo == 'M'"},    // no match_value
		{Selector: "#sel", FieldKind: KindSelect},                                // no canonical key
		{Selector: "#kind", CanonicalKey: "cp", FieldKind: Kind("weird")},        // kind defaults to text
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.MappingsCount != 2 {
		t.Fatalf("mappings_count = %d, want 2 (invalid entries dropped)", tpl.MappingsCount)
	}
	for _, m := range tpl.Mappings {
		if !m.Valid() {
			t.Errorf("stored invalid mapping: %+v", m)
		}
	}
	if tpl.Source != "user" {
		t.Errorf("default source = %q", tpl.Source)
	}
}

func TestNormalizeTarget(t *testing.T) {
	host, path := NormalizeTarget("https://SEDE.Example.GOB.es/Tasas/Form?x=1#frag")
	if host != "sede.example.gob.es" || path != "/tasas/form" {
		t.Errorf("NormalizeTarget = (%q, %q)", host, path)
	}
	host, path = NormalizeTarget("https://example.org")
	if host != "example.org" || path != "/" {
		t.Errorf("empty path should normalize to /, got (%q, %q)", host, path)
	}
}
