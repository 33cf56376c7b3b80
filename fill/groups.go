package fill

import (
	"math"
	"sort"

	"github.com/hazyhaar/formfill/canonical"
)

// Geometry thresholds for widget grouping, in PDF points. Widgets whose
// vertical origins differ by at most rowTolerance sit on the same visual
// row; single-character boxes (identity prefix/suffix letters) are at most
// narrowWidth wide.
const (
	rowTolerance = 25.0
	narrowWidth  = 40.0
)

type positioned struct {
	field *docField
	x, y  float64
	width float64
}

func sortByRowThenX(items []positioned) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].y != items[j].y {
			return items[i].y < items[j].y
		}
		return items[i].x < items[j].x
	})
}

func sameRow(a, b float64) bool {
	return math.Abs(a-b) <= rowTolerance
}

// identitySplitMap resolves documents that split the identity number into
// three boxes: one wide box for the digits flanked by two narrow
// single-letter boxes. All three widgets must be mapped to the whole-number
// key; the split keys are assigned by width class and x-order. Returns an
// empty map when the layout does not support the inference.
func identitySplitMap(fields []*docField, keyByField map[string]string, values canonical.ValueMap) map[string]string {
	prefix := values["nif_nie_prefix"]
	number := values["nif_nie_number"]
	suffix := values["nif_nie_suffix"]
	if prefix == "" || number == "" || suffix == "" {
		return nil
	}

	var candidates []positioned
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" || seen[f.Name] {
			continue
		}
		if keyByField[f.Name] != "nif_nie" {
			continue
		}
		candidates = append(candidates, positioned{
			field: f,
			x:     f.Rect.X0,
			y:     f.Rect.Y0,
			width: f.Rect.Width(),
		})
		seen[f.Name] = true
	}
	if len(candidates) < 3 {
		return nil
	}

	var wide, narrow []positioned
	for _, c := range candidates {
		if c.width > narrowWidth {
			wide = append(wide, c)
		} else {
			narrow = append(narrow, c)
		}
	}
	if len(wide) == 0 || len(narrow) < 2 {
		return nil
	}
	sortByRowThenX(wide)
	sortByRowThenX(narrow)

	middle := wide[0]
	var row []positioned
	for _, c := range narrow {
		if sameRow(c.y, middle.y) {
			row = append(row, c)
		}
	}
	var left, right positioned
	if len(row) >= 2 {
		sort.SliceStable(row, func(i, j int) bool { return row[i].x < row[j].x })
		left, right = row[0], row[len(row)-1]
	} else {
		left, right = narrow[0], narrow[1]
		if left.x > right.x {
			left, right = right, left
		}
	}

	return map[string]string{
		left.field.Name:   "nif_nie_prefix",
		middle.field.Name: "nif_nie_number",
		right.field.Name:  "nif_nie_suffix",
	}
}

// dateSplitValues resolves documents that spread a date across three boxes
// on one row: all widgets mapped to the same date key become day, month and
// year left to right. Both date keys are handled independently.
func dateSplitValues(fields []*docField, keyByField map[string]string, values canonical.ValueMap) map[string]string {
	out := map[string]string{}
	for _, dateKey := range []string{"fecha_nacimiento", "fecha"} {
		dd, mm, yy := canonical.SplitDateParts(values[dateKey])
		if dd == "" || mm == "" || yy == "" {
			continue
		}
		var candidates []positioned
		for _, f := range fields {
			if f.Name == "" || f.Kind == widgetCheckbox {
				continue
			}
			if keyByField[f.Name] != dateKey {
				continue
			}
			candidates = append(candidates, positioned{field: f, x: f.Rect.X0, y: f.Rect.Y0})
		}
		if len(candidates) < 3 {
			continue
		}
		sortByRowThenX(candidates)
		var row []positioned
		for _, c := range candidates {
			if sameRow(c.y, candidates[0].y) {
				row = append(row, c)
			}
		}
		if len(row) < 3 {
			row = candidates[:3]
		}
		sort.SliceStable(row, func(i, j int) bool { return row[i].x < row[j].x })
		out[row[0].field.Name] = dd
		out[row[1].field.Name] = mm
		out[row[2].field.Name] = yy
	}
	return out
}

// checkboxGroupTargets maps each checkbox in a mutually exclusive group to
// its desired state. Widgets are laid out on the first visual row left to
// right and matched positionally against the logical code order; exactly the
// box whose code equals selected is checked.
//
// twoStateSexFallback covers templates exposing only two sex boxes: a
// two-widget row maps left to H and right to M regardless of the full order.
func checkboxGroupTargets(fields []*docField, names map[string]bool, logicalOrder []string, selected string, twoStateSexFallback bool) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	var items []positioned
	for _, f := range fields {
		if f.Kind != widgetCheckbox || !names[f.Name] {
			continue
		}
		items = append(items, positioned{field: f, x: f.Rect.X0, y: f.Rect.Y0})
	}
	if len(items) == 0 {
		return nil
	}
	sortByRowThenX(items)
	// Keep only the first visual row; other rows are parser noise or
	// unrelated repeats of the same names.
	var row []positioned
	for _, it := range items {
		if sameRow(it.y, items[0].y) {
			row = append(row, it)
		}
	}
	sort.SliceStable(row, func(i, j int) bool { return row[i].x < row[j].x })

	order := logicalOrder
	if twoStateSexFallback && len(row) == 2 && len(logicalOrder) >= 2 {
		order = []string{"H", "M"}
	}
	out := map[string]bool{}
	for i, it := range row {
		if i >= len(order) {
			break
		}
		out[it.field.Name] = selected == order[i]
	}
	return out
}
