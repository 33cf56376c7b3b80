package fill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

// pdfSignature opens every well-formed document; anything else fetched from
// a document-classified URL is rejected before parsing.
var pdfSignature = []byte("%PDF")

// FetchDocument downloads a document resource and validates it by signature
// or content type. The body is read fully; documents on these portals are a
// few hundred kilobytes.
func (e *Engine) FetchDocument(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fill: fetch document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fill: fetch document: %s returned %s", target, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("fill: fetch document body: %w", err)
	}
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !bytes.HasPrefix(data, pdfSignature) && !strings.Contains(ctype, "application/pdf") {
		return nil, fmt.Errorf("fill: target is not a document (content-type %q)", ctype)
	}
	return data, nil
}

// explicitMeta is one explicit mapping indexed by document field name. The
// selector convention for document fields is "pdf:<field name>"; bare
// selectors are accepted for templates saved before the prefix existed.
type explicitMeta struct {
	key        string
	kind       mapping.Kind
	matchValue string
	rule       string
	source     string
}

func explicitByField(mappings []mapping.FieldMapping) map[string]explicitMeta {
	out := map[string]explicitMeta{}
	for _, m := range mappings {
		sel := strings.TrimSpace(m.Selector)
		sel = strings.TrimPrefix(sel, "pdf:")
		if sel == "" {
			continue
		}
		kind := mapping.Kind(strings.ToLower(strings.TrimSpace(string(m.FieldKind))))
		if kind == "" {
			kind = mapping.KindText
		}
		out[sel] = explicitMeta{
			key:        strings.TrimSpace(m.CanonicalKey),
			kind:       kind,
			matchValue: strings.TrimSpace(m.MatchValue),
			rule:       strings.TrimSpace(m.CheckedWhen),
			source:     strings.TrimSpace(m.Source),
		}
	}
	return out
}

// FillDocument runs the document strategy: fetch, enumerate widgets, resolve
// each one through the priority chain, and write the filled document under
// opts.OutDir.
func (e *Engine) FillDocument(ctx context.Context, target string, values canonical.ValueMap, mappings []mapping.FieldMapping, opts Options) (*Result, error) {
	opts.defaults()
	data, err := e.FetchDocument(ctx, target)
	if err != nil {
		return nil, err
	}
	doc, err := openForm(data)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: ModeDocument, TargetURL: target}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("fill: out dir: %w", err)
	}
	if opts.CaptureDOM {
		src := filepath.Join(opts.OutDir, artifactName("target_source", "pdf"))
		if err := os.WriteFile(src, data, 0o644); err == nil {
			res.Artifacts.Dumps = append(res.Artifacts.Dumps, src)
		}
	}

	explicit := explicitByField(mappings)
	// Any explicit mapping puts the document in explicit-only mode: the
	// template author has claimed the field names, so the naming
	// heuristic stays off even without the strict flag.
	strictExplicit := opts.Strict || len(explicit) > 0

	keyByField := map[string]string{}
	for name, meta := range explicit {
		if meta.key != "" {
			keyByField[name] = meta.key
		}
	}
	identityByField := identitySplitMap(doc.Fields, keyByField, values)
	dateByField := dateSplitValues(doc.Fields, keyByField, values)

	sexoFields, estadoFields := checkboxGroupFields(doc.Fields, explicit)
	sexoTargets := checkboxGroupTargets(doc.Fields, sexoFields, []string{"X", "H", "M"},
		strings.ToUpper(strings.TrimSpace(values["sexo"])), true)
	estadoTargets := checkboxGroupTargets(doc.Fields, estadoFields, []string{"S", "C", "V", "D", "SP"},
		strings.ToUpper(strings.TrimSpace(values["estado_civil"])), false)

	for _, f := range doc.Fields {
		meta, hasMeta := explicit[f.Name]
		mappedKey := meta.key
		source := "mapping"
		if k, ok := identityByField[f.Name]; ok {
			mappedKey = k
			source = "triplet"
		}

		if f.Kind == widgetCheckbox {
			e.fillDocumentCheckbox(res, doc, f, meta, hasMeta, mappedKey, values, sexoFields, estadoFields, sexoTargets, estadoTargets)
			continue
		}

		value, vsource, verr := textValueFor(f.Name, mappedKey, source, strictExplicit, dateByField, values)
		if verr != nil {
			return nil, verr
		}
		if value == "" {
			continue
		}
		doc.setText(f, value)
		res.fill(f.Name)
		res.applied(f.Name, mappedKey, f.Kind, value, vsource)
	}

	out := filepath.Join(opts.OutDir, artifactName("target_filled", "pdf"))
	fh, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("fill: filled document: %w", err)
	}
	defer fh.Close()
	if err := doc.save(fh); err != nil {
		return nil, err
	}
	res.Artifacts.Document = out
	if len(res.FilledFields) == 0 {
		res.Warnings = append(res.Warnings, "no form fields matched; original structure saved for manual completion")
	}
	return res, nil
}

// textValueFor resolves the value a text widget receives. Date triplets and
// the composed-full-name field resolve regardless of mode; otherwise an
// explicit canonical key reads from the value map, and the naming heuristic
// runs only outside explicit-only mode. An empty result leaves the field
// blank, except a structurally required complementary settlement amount,
// which aborts.
func textValueFor(fieldName, mappedKey, source string, strictExplicit bool, dateByField map[string]string, values canonical.ValueMap) (string, string, error) {
	var value string
	switch {
	case dateByField[fieldName] != "":
		value = dateByField[fieldName]
		source = "triplet"
	case strings.Contains(canonical.NormalizeToken(fieldName), "nombreyapellidosdeltitular"):
		value = composedFullName(values)
		source = "heuristic"
	case mappedKey != "" && canonical.IsKey(mappedKey):
		value = values[mappedKey]
	case strictExplicit:
		value = ""
	default:
		value = valueForFieldName(fieldName, values)
		source = "heuristic"
	}
	if value == "" && requiresComplementaryAmount(fieldName) {
		return "", "", fmt.Errorf("%w: %s", ErrRequiredFieldUnresolved, fieldName)
	}
	return value, source, nil
}

func (e *Engine) fillDocumentCheckbox(res *Result, doc *formDoc, f *docField, meta explicitMeta, hasMeta bool, mappedKey string, values canonical.ValueMap, sexoFields, estadoFields map[string]bool, sexoTargets, estadoTargets map[string]bool) {
	if sexoFields[f.Name] {
		doc.setCheck(f, sexoTargets[f.Name])
		res.fill(f.Name)
		res.applied(f.Name, "sexo", f.Kind, f.Value, "group")
		return
	}
	if estadoFields[f.Name] {
		doc.setCheck(f, estadoTargets[f.Name])
		res.fill(f.Name)
		res.applied(f.Name, "estado_civil", f.Kind, f.Value, "group")
		return
	}

	if hasMeta && (meta.kind == mapping.KindCheckbox || meta.kind == mapping.KindRadio) {
		if rule, err := mapping.ParseRule(meta.rule); err == nil {
			checked := rule.Eval(values) && meta.matchValue != ""
			doc.setCheck(f, checked)
			res.fill(f.Name)
			if checked {
				res.applied(f.Name, mappedKey, string(meta.kind), f.Value, "mapping")
			} else {
				res.Unchecked = append(res.Unchecked, Applied{Field: f.Name, Key: mappedKey, Kind: string(meta.kind), Value: "Off", Source: "mapping"})
				res.skipped(f.Name, mappedKey, "rule_evaluated_false")
			}
			return
		}
		// An unusable rule falls through to naming inference rather
		// than guessing a state from the rule text.
		res.skipped(f.Name, mappedKey, "rule_unparsable")
	}

	if checked, ok := checkboxExpected(f.Name, mappedKey, values); ok {
		doc.setCheck(f, checked)
		res.fill(f.Name)
		res.applied(f.Name, mappedKey, f.Kind, f.Value, "heuristic")
	}
}

// checkboxGroupFields collects the widgets belonging to the sex and
// marital-status groups: explicitly mapped names when the template provides
// them, otherwise the well-known names used by the official templates.
func checkboxGroupFields(fields []*docField, explicit map[string]explicitMeta) (sexo, estado map[string]bool) {
	sexo = map[string]bool{}
	estado = map[string]bool{}
	for name, meta := range explicit {
		if meta.kind != mapping.KindCheckbox && meta.kind != mapping.KindRadio {
			continue
		}
		switch strings.ToLower(meta.key) {
		case "sexo":
			sexo[name] = true
		case "estado_civil":
			estado[name] = true
		}
	}
	if len(sexo) > 0 && len(estado) > 0 {
		return sexo, estado
	}
	detectedSexo := map[string]bool{}
	detectedEstado := map[string]bool{}
	for _, f := range fields {
		if f.Kind != widgetCheckbox {
			continue
		}
		switch strings.ToUpper(f.Name) {
		case "H", "M", "CHKBOX":
			detectedSexo[f.Name] = true
		}
		switch strings.ToUpper(f.Name) {
		case "C", "V", "D", "SP", "CHKBOX-0":
			detectedEstado[f.Name] = true
		}
	}
	if len(sexo) == 0 {
		sexo = detectedSexo
	}
	if len(estado) == 0 {
		estado = detectedEstado
	}
	return sexo, estado
}

// requiresComplementaryAmount recognizes the complementary settlement amount
// box. Leaving it blank produces a document the portal rejects, so an
// unresolved value is an error rather than a silent skip.
func requiresComplementaryAmount(fieldName string) bool {
	n := canonical.NormalizeToken(fieldName)
	return strings.Contains(n, "complementaria") && strings.Contains(n, "importe")
}

func artifactName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", time.Now().Format("20060102_150405"), prefix, ext)
}
