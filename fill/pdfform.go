package fill

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/formfill/mapping"
)

// Widget kinds as stored on docField.Kind.
const (
	widgetText     = "text"
	widgetChoice   = "choice"
	widgetCheckbox = "checkbox"
)

// docField is one fillable widget in an AcroForm document. A radio or
// checkbox group yields one docField per widget, all sharing Name; the value
// lives on the shared holder dict, the appearance state on each widget.
type docField struct {
	Name    string
	Kind    string
	Page    int
	Rect    mapping.Rect
	OnState string
	Value   string

	widget types.Dict
	holder types.Dict
}

// formDoc wraps a parsed document and its widgets in page/annotation order,
// which is the order a reader sees them in.
type formDoc struct {
	ctx    *model.Context
	Fields []*docField
}

// openForm parses a document and enumerates its form widgets by walking the
// page tree and each page's annotations, resolving inherited field type,
// flags and names through Parent chains. Documents without a single
// fillable widget return ErrNotForm.
func openForm(data []byte) (*formDoc, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("fill: pdfcpu read: %w", err)
	}

	d := &formDoc{ctx: ctx}
	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("fill: pdf catalog: %w", err)
	}
	pagesObj, found := root.Find("Pages")
	if !found {
		return nil, fmt.Errorf("fill: pdf has no page tree")
	}
	pageNr := 0
	if err := d.walkPages(pagesObj, &pageNr); err != nil {
		return nil, err
	}
	if len(d.Fields) == 0 {
		return nil, ErrNotForm
	}
	return d, nil
}

func (d *formDoc) walkPages(obj types.Object, pageNr *int) error {
	dict, err := d.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return fmt.Errorf("fill: pdf page tree node: %w", err)
	}
	typ := ""
	if n, found := dict.Find("Type"); found {
		if name, ok := n.(types.Name); ok {
			typ = name.Value()
		}
	}
	if typ == "Pages" {
		kids, err := d.ctx.DereferenceArray(dict["Kids"])
		if err != nil {
			return fmt.Errorf("fill: pdf page kids: %w", err)
		}
		for _, kid := range kids {
			if err := d.walkPages(kid, pageNr); err != nil {
				return err
			}
		}
		return nil
	}
	// Leaf page.
	page := *pageNr
	*pageNr++
	annotsObj, found := dict.Find("Annots")
	if !found {
		return nil
	}
	annots, err := d.ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil
	}
	for _, a := range annots {
		ad, err := d.ctx.DereferenceDict(a)
		if err != nil || ad == nil {
			continue
		}
		if sub, found := ad.Find("Subtype"); found {
			if name, ok := sub.(types.Name); ok && name.Value() == "Widget" {
				d.addWidget(ad, page)
			}
		}
	}
	return nil
}

// Button field flags (PDF 32000-1 table 226).
const (
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

func (d *formDoc) addWidget(widget types.Dict, page int) {
	name := d.qualifiedName(widget)
	if name == "" {
		return
	}
	ft := d.inherited(widget, "FT")
	ftName := ""
	if n, ok := ft.(types.Name); ok {
		ftName = n.Value()
	}

	f := &docField{
		Name:   name,
		Page:   page,
		Rect:   d.rectOf(widget),
		widget: widget,
		holder: d.valueHolder(widget),
	}

	switch ftName {
	case "Tx":
		f.Kind = widgetText
	case "Ch":
		f.Kind = widgetChoice
	case "Btn":
		flags := 0
		if ff, ok := d.inherited(widget, "Ff").(types.Integer); ok {
			flags = ff.Value()
		}
		if flags&flagPushbutton != 0 {
			return
		}
		_ = flags & flagRadio // radio widgets fill the same way
		f.Kind = widgetCheckbox
		f.OnState = d.onState(widget)
	default:
		return
	}

	if v, found := f.holder.Find("V"); found {
		f.Value = d.decodeString(v)
	}
	d.Fields = append(d.Fields, f)
}

// qualifiedName joins the T entries from the widget up through its Parent
// chain with dots, matching how readers report field names.
func (d *formDoc) qualifiedName(widget types.Dict) string {
	var parts []string
	dict := widget
	for depth := 0; dict != nil && depth < 32; depth++ {
		if t, found := dict.Find("T"); found {
			if s := d.decodeString(t); s != "" {
				parts = append(parts, s)
			}
		}
		parent, found := dict.Find("Parent")
		if !found {
			break
		}
		pd, err := d.ctx.DereferenceDict(parent)
		if err != nil || pd == nil {
			break
		}
		dict = pd
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// inherited resolves an entry on the widget or the nearest ancestor that
// defines it.
func (d *formDoc) inherited(widget types.Dict, key string) types.Object {
	dict := widget
	for depth := 0; dict != nil && depth < 32; depth++ {
		if v, found := dict.Find(key); found {
			if o, err := d.ctx.Dereference(v); err == nil {
				return o
			}
			return v
		}
		parent, found := dict.Find("Parent")
		if !found {
			return nil
		}
		pd, err := d.ctx.DereferenceDict(parent)
		if err != nil || pd == nil {
			return nil
		}
		dict = pd
	}
	return nil
}

// valueHolder is the nearest dict in the Parent chain carrying a partial
// name; /V belongs there. Widgets that are themselves terminal fields hold
// their own value.
func (d *formDoc) valueHolder(widget types.Dict) types.Dict {
	dict := widget
	for depth := 0; dict != nil && depth < 32; depth++ {
		if _, found := dict.Find("T"); found {
			return dict
		}
		parent, found := dict.Find("Parent")
		if !found {
			break
		}
		pd, err := d.ctx.DereferenceDict(parent)
		if err != nil || pd == nil {
			break
		}
		dict = pd
	}
	return widget
}

// onState reads the non-Off appearance state of a button widget.
func (d *formDoc) onState(widget types.Dict) string {
	ap, err := d.ctx.DereferenceDict(widget["AP"])
	if err != nil || ap == nil {
		return "Yes"
	}
	n, err := d.ctx.DereferenceDict(ap["N"])
	if err != nil || n == nil {
		return "Yes"
	}
	for k := range n {
		if k != "Off" {
			return k
		}
	}
	return "Yes"
}

func (d *formDoc) rectOf(widget types.Dict) mapping.Rect {
	arr, err := d.ctx.DereferenceArray(widget["Rect"])
	if err != nil || len(arr) != 4 {
		return mapping.Rect{}
	}
	n := make([]float64, 4)
	for i, o := range arr {
		o, _ = d.ctx.Dereference(o)
		switch v := o.(type) {
		case types.Integer:
			n[i] = float64(v.Value())
		case types.Float:
			n[i] = v.Value()
		}
	}
	// PDF user space has Y growing upward; callers only compare
	// coordinates relative to each other, so no flipping is needed.
	return mapping.Rect{X0: n[0], Y0: n[1], X1: n[2], Y1: n[3]}
}

func (d *formDoc) decodeString(o types.Object) string {
	o, err := d.ctx.Dereference(o)
	if err != nil {
		return ""
	}
	switch v := o.(type) {
	case types.StringLiteral:
		if s, err := types.StringLiteralToString(v); err == nil {
			return s
		}
	case types.HexLiteral:
		if s, err := types.HexLiteralToString(v); err == nil {
			return s
		}
	case types.Name:
		return v.Value()
	}
	return ""
}

// pdfTextString encodes a value as a UTF-16BE hex string with BOM, valid for
// any content without escaping concerns.
func pdfTextString(s string) types.Object {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2+len(u)*2)
	b = append(b, 0xFE, 0xFF)
	for _, cu := range u {
		b = append(b, byte(cu>>8), byte(cu))
	}
	return types.NewHexLiteral(b)
}

// setText writes a text or choice value. The widget-level appearance stream
// is dropped so viewers regenerate it from the new value.
func (d *formDoc) setText(f *docField, value string) {
	f.holder["V"] = pdfTextString(value)
	f.widget.Delete("AP")
	f.Value = value
}

// setCheck flips a button widget. Checking writes the widget's on-state to
// both the value holder and the widget appearance; unchecking writes Off.
func (d *formDoc) setCheck(f *docField, on bool) {
	state := "Off"
	if on {
		state = f.OnState
	}
	f.holder["V"] = types.Name(state)
	f.widget["AS"] = types.Name(state)
	f.Value = state
}

// save serializes the document with NeedAppearances set so interactive
// viewers render the values written without appearance streams.
func (d *formDoc) save(w io.Writer) error {
	root, err := d.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("fill: pdf catalog: %w", err)
	}
	if af, err := d.ctx.DereferenceDict(root["AcroForm"]); err == nil && af != nil {
		af["NeedAppearances"] = types.Boolean(true)
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("fill: pdfcpu write: %w", err)
	}
	return nil
}
