package fill

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

// FillPage runs the interactive strategy against an already navigated page:
// explicit mappings first, then (outside strict mode) the adapter chain for
// canonical keys no mapping reached, then datepicker dismissal and the debug
// artifacts. The page is mutated in place; nothing is submitted.
func (e *Engine) FillPage(ctx context.Context, page *rod.Page, targetURL string, values canonical.ValueMap, mappings []mapping.FieldMapping, opts Options) (*Result, error) {
	opts.defaults()
	res := &Result{Mode: ModePage, TargetURL: targetURL}
	p := page.Context(ctx).Timeout(opts.Timeout)

	e.applyMappings(p, values, mappings, res)

	if !opts.Strict {
		for _, a := range pickAdapters(targetURL) {
			if err := a.apply(p, values, res); err != nil {
				// Adapters are best effort on foreign markup; one
				// failing must not sink the others.
				e.log.Warn("adapter failed", "adapter", a.name, "target", targetURL, "error", err)
			}
		}
	}

	dismissDatepicker(p)

	if opts.OutDir != "" && (opts.CaptureScreenshots || opts.CaptureDOM) {
		if err := os.MkdirAll(opts.OutDir, 0o755); err == nil {
			if opts.CaptureDOM {
				if html, err := p.HTML(); err == nil {
					path := filepath.Join(opts.OutDir, artifactName("target_dom", "html"))
					if os.WriteFile(path, []byte(html), 0o644) == nil {
						res.Artifacts.DOMSnapshot = path
					}
				}
			}
			if opts.CaptureScreenshots {
				if shot, err := p.Screenshot(false, nil); err == nil {
					path := filepath.Join(opts.OutDir, artifactName("target_page", "png"))
					if os.WriteFile(path, shot, 0o644) == nil {
						res.Artifacts.Screenshots = append(res.Artifacts.Screenshots, path)
					}
				}
			}
		}
	}
	return res, nil
}

// applyMappings plays the explicit template mappings against the page.
// Checkbox and radio mappings go through the checked_when rule; text and
// select mappings write the canonical value, with the CP-derived province as
// a select fallback when the payload province does not match any option.
func (e *Engine) applyMappings(p *rod.Page, values canonical.ValueMap, mappings []mapping.FieldMapping, res *Result) {
	for _, m := range mappings {
		selector := strings.TrimSpace(m.Selector)
		key := strings.TrimSpace(m.CanonicalKey)
		kind := m.FieldKind
		if selector == "" || strings.HasPrefix(selector, "pdf:") {
			continue
		}
		switch kind {
		case mapping.KindCheckbox, mapping.KindRadio:
			rule, err := mapping.ParseRule(m.CheckedWhen)
			if err != nil {
				res.skipped(selector, key, "rule_unparsable")
				continue
			}
			checked := rule.Eval(values) && strings.TrimSpace(m.MatchValue) != ""
			if !setCheckIfPossible(p, selector, checked) {
				res.skipped(selector, key, "field_not_found")
				continue
			}
			res.fill(key)
			if checked {
				res.applied(selector, key, string(kind), "checked", "mapping")
			} else {
				res.skipped(selector, key, "rule_evaluated_false")
			}
		default:
			if !canonical.IsKey(key) {
				continue
			}
			value := values[key]
			if value == "" {
				res.skipped(selector, key, "empty_value")
				continue
			}
			ok := false
			if kind == mapping.KindSelect {
				ok = selectIfPossible(p, selector, value)
				if !ok && key == "provincia" {
					if inferred := canonical.ProvinceForPostalCode(values["cp"]); inferred != "" {
						ok = selectIfPossible(p, selector, inferred)
						if ok {
							value = inferred
						}
					}
				}
			} else {
				ok = selectIfPossible(p, selector, value) || setIfPossible(p, selector, value)
			}
			if !ok {
				res.skipped(selector, key, "field_not_found")
				continue
			}
			res.fill(key)
			res.applied(selector, key, string(kind), value, "mapping")
		}
	}
}

// usableElement returns the first visible, enabled element for the selector,
// or nil. Lookups never wait: a missing field is an answer, not a timeout.
func usableElement(p *rod.Page, selector string) *rod.Element {
	el, err := p.Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil
	}
	if vis, err := el.Visible(); err != nil || !vis {
		return nil
	}
	if r, err := el.Eval(`() => !!this.disabled`); err != nil || r.Value.Bool() {
		return nil
	}
	return el
}

// setIfPossible writes a text value into the first usable selector, firing
// input/change so framework listeners see the edit.
func setIfPossible(p *rod.Page, selector, value string) bool {
	if value == "" {
		return false
	}
	el := usableElement(p, selector)
	if el == nil {
		return false
	}
	_, err := el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event("input", { bubbles: true }));
		this.dispatchEvent(new Event("change", { bubbles: true }));
	}`, value)
	return err == nil
}

type selectOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// matchSelectOption returns the index of the option matching the value, or
// -1. Matching tiers: exact text or value (case-insensitive), then
// diacritic-stripped uppercase equality, then substring on either form. An
// exact match anywhere beats an earlier substring hit. Street-type
// abbreviations in the value ("AVDA", "CL") are also tried expanded, so an
// abbreviated tipo_via still lands on the full option label.
func matchSelectOption(options []selectOption, value string) int {
	candidates := []string{value}
	if exp := canonical.ExpandStreetAbbreviations(value); !strings.EqualFold(exp, value) {
		candidates = append(candidates, exp)
	}
	match := -1
	for i, o := range options {
		textLower := strings.ToLower(o.Text)
		valLower := strings.ToLower(o.Value)
		textNorm := canonical.NormalizeASCIIUpper(o.Text)
		valNorm := canonical.NormalizeASCIIUpper(o.Value)
		for _, cand := range candidates {
			desired := strings.ToLower(strings.TrimSpace(cand))
			desiredNorm := canonical.NormalizeASCIIUpper(cand)
			if textLower == desired || valLower == desired || (desiredNorm != "" && (textNorm == desiredNorm || valNorm == desiredNorm)) {
				return i
			}
			if match < 0 && (strings.Contains(textLower, desired) ||
				(valLower != "" && strings.Contains(valLower, desired)) ||
				(desiredNorm != "" && (strings.Contains(textNorm, desiredNorm) || strings.Contains(valNorm, desiredNorm)))) {
				match = i
			}
		}
	}
	return match
}

// selectIfPossible picks a select option for the value via matchSelectOption
// and applies it through the DOM, firing input/change.
func selectIfPossible(p *rod.Page, selector, value string) bool {
	if value == "" {
		return false
	}
	el := usableElement(p, selector)
	if el == nil {
		return false
	}
	if tag, err := el.Eval(`() => this.tagName.toLowerCase()`); err != nil || tag.Value.Str() != "select" {
		return false
	}
	raw, err := el.Eval(`() => JSON.stringify(Array.from(this.options).map(o => ({text: o.textContent.trim(), value: o.value})))`)
	if err != nil {
		return false
	}
	var options []selectOption
	if err := json.Unmarshal([]byte(raw.Value.Str()), &options); err != nil || len(options) == 0 {
		return false
	}

	match := matchSelectOption(options, value)
	if match < 0 {
		return false
	}
	_, err = el.Eval(`(i) => {
		this.selectedIndex = i;
		this.dispatchEvent(new Event("input", { bubbles: true }));
		this.dispatchEvent(new Event("change", { bubbles: true }));
	}`, match)
	return err == nil
}

// setCheckIfPossible drives a checkbox or radio to the desired state through
// the DOM, firing the usual events.
func setCheckIfPossible(p *rod.Page, selector string, checked bool) bool {
	el := usableElement(p, selector)
	if el == nil {
		return false
	}
	r, err := el.Eval(`(state) => {
		if (this.type === "checkbox" || this.type === "radio") {
			this.checked = !!state;
			this.dispatchEvent(new Event("input", { bubbles: true }));
			this.dispatchEvent(new Event("change", { bubbles: true }));
			return true;
		}
		return false;
	}`, checked)
	return err == nil && r.Value.Bool()
}

// fillByLabel resolves a control by its label text: a <label> whose text
// matches one of the patterns (case-insensitive regexp), resolved through
// its for attribute or a wrapped control. First usable match wins.
func fillByLabel(p *rod.Page, patterns []string, value string) bool {
	if value == "" {
		return false
	}
	r, err := p.Eval(`(patterns, value) => {
		for (const pat of patterns) {
			const re = new RegExp(pat, "i");
			for (const label of document.querySelectorAll("label")) {
				if (!re.test((label.textContent || "").trim())) continue;
				let el = null;
				const forId = label.getAttribute("for");
				if (forId) el = document.getElementById(forId);
				if (!el) el = label.querySelector("input, select, textarea");
				if (!el || el.disabled) continue;
				if (!(el.offsetWidth || el.offsetHeight || el.getClientRects().length)) continue;
				el.value = value;
				el.dispatchEvent(new Event("input", { bubbles: true }));
				el.dispatchEvent(new Event("change", { bubbles: true }));
				return true;
			}
		}
		return false;
	}`, patterns, value)
	return err == nil && r.Value.Bool()
}

// dismissDatepicker closes any calendar overlay a date fill left open, so
// screenshots and subsequent clicks see the form. Best effort throughout.
func dismissDatepicker(p *rod.Page) {
	p.Eval(`() => {
		const input = document.querySelector("#fecha, input[name='fecha']");
		if (input) {
			input.dispatchEvent(new Event("change", { bubbles: true }));
			input.dispatchEvent(new Event("blur", { bubbles: true }));
			input.blur();
		}
		const closeBtn = document.querySelector("#ui-datepicker-div .ui-datepicker-close");
		if (closeBtn && closeBtn.offsetParent !== null) {
			closeBtn.click();
			return;
		}
		if (typeof window.jQuery === "function") {
			try { window.jQuery("#fecha").datepicker("hide"); } catch (e) {}
		}
		if (document.body) {
			document.body.click();
		}
	}`) //nolint:errcheck
	p.Keyboard.Press(input.Escape) //nolint:errcheck
}
