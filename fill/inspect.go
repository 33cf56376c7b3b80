package fill

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/go-rod/rod"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/formfill/mapping"
)

// labelPolicy strips markup from scraped label fragments. Labels on these
// portals regularly wrap text in spans, abbr and required-marker markup.
var labelPolicy = bluemonday.StrictPolicy()

const inspectJS = `() => {
	const rows = [];
	for (const el of document.querySelectorAll("input, select, textarea")) {
		const type = (el.getAttribute("type") || "").toLowerCase();
		if (type === "hidden" || type === "submit" || type === "button" || type === "reset") continue;
		if (el.disabled) continue;
		let selector = "";
		if (el.id) {
			selector = "#" + CSS.escape(el.id);
		} else if (el.name) {
			selector = el.tagName.toLowerCase() + '[name="' + el.name.replace(/"/g, '\\"') + '"]';
		} else {
			continue;
		}
		let labelHTML = "";
		if (el.id) {
			const byFor = document.querySelector('label[for="' + el.id + '"]');
			if (byFor) labelHTML = byFor.innerHTML || "";
		}
		if (!labelHTML) {
			const wrapped = el.closest("label");
			if (wrapped) labelHTML = wrapped.innerHTML || "";
		}
		rows.push({
			selector,
			tag: el.tagName.toLowerCase(),
			type,
			id: el.id || "",
			name: el.getAttribute("name") || "",
			label_html: labelHTML,
			placeholder: el.getAttribute("placeholder") || "",
			aria_label: el.getAttribute("aria-label") || "",
			visible: !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
		});
	}
	return JSON.stringify(rows);
}`

type inspectRow struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	LabelHTML   string `json:"label_html"`
	Placeholder string `json:"placeholder"`
	AriaLabel   string `json:"aria_label"`
	Visible     bool   `json:"visible"`
}

// InspectPage enumerates the visible, enabled form controls of a live page
// as field descriptors. Labels resolve through for attributes first, then
// the enclosing label element, and are stripped to plain text.
func InspectPage(ctx context.Context, page *rod.Page) ([]mapping.FieldDescriptor, error) {
	r, err := page.Context(ctx).Eval(inspectJS)
	if err != nil {
		return nil, fmt.Errorf("fill: inspect page: %w", err)
	}
	var rows []inspectRow
	if err := json.Unmarshal([]byte(r.Value.Str()), &rows); err != nil {
		return nil, fmt.Errorf("fill: inspect page decode: %w", err)
	}
	out := make([]mapping.FieldDescriptor, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapping.FieldDescriptor{
			Selector:    row.Selector,
			Tag:         row.Tag,
			Type:        row.Type,
			ID:          row.ID,
			Name:        row.Name,
			Label:       cleanLabel(row.LabelHTML),
			Placeholder: row.Placeholder,
			AriaLabel:   row.AriaLabel,
			Visible:     row.Visible,
		})
	}
	return out, nil
}

func cleanLabel(fragment string) string {
	text := html.UnescapeString(labelPolicy.Sanitize(fragment))
	return strings.Trim(strings.Join(strings.Fields(text), " "), " :.-")
}

// InspectDocument enumerates the widgets of a form document. The field name
// doubles as the label; the byte layout of these documents does not carry
// text positions a label could be scraped from.
func InspectDocument(data []byte) ([]mapping.FieldDescriptor, error) {
	doc, err := openForm(data)
	if err != nil {
		return nil, err
	}
	out := make([]mapping.FieldDescriptor, 0, len(doc.Fields))
	seen := map[string]bool{}
	for _, f := range doc.Fields {
		if f.Name == "" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		r := mapping.Rect{
			X0: round2(f.Rect.X0), Y0: round2(f.Rect.Y0),
			X1: round2(f.Rect.X1), Y1: round2(f.Rect.Y1),
		}
		out = append(out, mapping.FieldDescriptor{
			Selector:  "pdf:" + f.Name,
			Tag:       "pdf_widget",
			Type:      f.Kind,
			ID:        f.Name,
			Name:      f.Name,
			Label:     f.Name,
			Visible:   true,
			PageIndex: f.Page,
			Rect:      &r,
		})
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type fieldValueRow struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

const fieldValuesJS = `() => {
	const out = [];
	for (const el of document.querySelectorAll("input, select, textarea")) {
		const type = (el.getAttribute("type") || "").toLowerCase();
		if (type === "hidden" || type === "submit" || type === "button" || type === "reset") continue;
		if (el.disabled) continue;
		let selector = "";
		if (el.id) selector = "#" + CSS.escape(el.id);
		else if (el.name) selector = el.tagName.toLowerCase() + '[name="' + el.name.replace(/"/g, '\\"') + '"]';
		else continue;
		const value = (el.value || "").trim();
		if (!value) continue;
		out.push({ selector, value });
	}
	return JSON.stringify(out);
}`

func evalFieldValues(page *rod.Page) ([]fieldValueRow, error) {
	r, err := page.Eval(fieldValuesJS)
	if err != nil {
		return nil, fmt.Errorf("fill: read field values: %w", err)
	}
	var rows []fieldValueRow
	if err := json.Unmarshal([]byte(r.Value.Str()), &rows); err != nil {
		return nil, fmt.Errorf("fill: read field values decode: %w", err)
	}
	return rows, nil
}
