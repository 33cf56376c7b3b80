package fill

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

// Placeholder syntax for template learning: fields pre-filled with {key}
// tokens in a copy of the target form teach the mapping for that target.
var (
	placeholderRe      = regexp.MustCompile(`(?i)^\{([a-z_]+)\}$`)
	placeholderTokenRe = regexp.MustCompile(`(?i)\{([a-z_]+)\}`)
)

// canonicalFromPlaceholder resolves a whole-value placeholder to a canonical
// key, or "".
func canonicalFromPlaceholder(value string) string {
	m := placeholderRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return ""
	}
	key := strings.ToLower(strings.TrimSpace(m[1]))
	if canonical.IsKey(key) {
		return key
	}
	return ""
}

// placeholderTokens splits a composite template string into known canonical
// keys and unknown variables, both deduplicated in first-seen order.
func placeholderTokens(value string) (known, unknown []string) {
	seenKnown := map[string]bool{}
	seenUnknown := map[string]bool{}
	for _, m := range placeholderTokenRe.FindAllStringSubmatch(value, -1) {
		key := strings.ToLower(strings.TrimSpace(m[1]))
		if canonical.IsKey(key) {
			if !seenKnown[key] {
				known = append(known, key)
				seenKnown[key] = true
			}
			continue
		}
		if !seenUnknown[key] {
			unknown = append(unknown, key)
			seenUnknown[key] = true
		}
	}
	return known, unknown
}

// compositeKey picks the canonical key to bind a composite placeholder to.
// Address and full-name composites collapse to their aggregate keys,
// anything else keeps its first token.
func compositeKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	set := map[string]bool{}
	for _, k := range keys {
		set[k] = true
	}
	if set["domicilio_en_espana"] || (set["tipo_via"] && set["nombre_via"]) {
		return "domicilio_en_espana"
	}
	if set["nombre_apellidos"] || (set["nombre"] && set["primer_apellido"]) {
		return "nombre_apellidos"
	}
	return keys[0]
}

// PlaceholderMappingsFromPage reads placeholder values out of the visible
// controls of a live page and converts them to mappings. Returns the
// mappings and the sorted unknown variable names encountered.
func PlaceholderMappingsFromPage(ctx context.Context, page *rod.Page) ([]mapping.FieldMapping, []string, error) {
	rows, err := evalFieldValues(page.Context(ctx))
	if err != nil {
		return nil, nil, err
	}
	var out []mapping.FieldMapping
	var unknown []string
	for _, row := range rows {
		if row.Selector == "" || row.Value == "" {
			continue
		}
		if key := canonicalFromPlaceholder(row.Value); key != "" {
			out = append(out, mapping.FieldMapping{
				Selector:     row.Selector,
				CanonicalKey: key,
				FieldKind:    mapping.KindText,
				Source:       "placeholder",
				Confidence:   1.0,
			})
			continue
		}
		if m := placeholderRe.FindStringSubmatch(row.Value); m != nil {
			unknown = append(unknown, strings.ToLower(strings.TrimSpace(m[1])))
		}
	}
	return out, dedupeSorted(unknown), nil
}

// PlaceholderMappingsFromDocument does the same over a form document's
// current field values, including composite placeholder strings.
func PlaceholderMappingsFromDocument(data []byte) ([]mapping.FieldMapping, []string, error) {
	doc, err := openForm(data)
	if err != nil {
		return nil, nil, err
	}
	var out []mapping.FieldMapping
	var unknown []string
	seen := map[string]bool{}
	for _, f := range doc.Fields {
		if f.Name == "" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		if key := canonicalFromPlaceholder(value); key != "" {
			out = append(out, mapping.FieldMapping{
				Selector:     "pdf:" + f.Name,
				CanonicalKey: key,
				FieldKind:    mapping.KindText,
				Source:       "placeholder",
				Confidence:   0.7,
			})
			continue
		}
		keys, unk := placeholderTokens(value)
		if len(keys) > 0 {
			conf := 0.7
			if len(keys) > 1 {
				conf = 0.65
			}
			out = append(out, mapping.FieldMapping{
				Selector:     "pdf:" + f.Name,
				CanonicalKey: compositeKey(keys),
				FieldKind:    mapping.KindText,
				Source:       "placeholder",
				Confidence:   conf,
			})
		}
		unknown = append(unknown, unk...)
	}
	return out, dedupeSorted(unknown), nil
}

func dedupeSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if s != "" && !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	sort.Strings(out)
	return out
}
