package fill

import "testing"

func TestMatchSelectOption(t *testing.T) {
	tiposVia := []selectOption{
		{Text: "Seleccione...", Value: ""},
		{Text: "Avenida", Value: "AV"},
		{Text: "Calle", Value: "CL"},
		{Text: "Plaza", Value: "PZ"},
	}
	provincias := []selectOption{
		{Text: "Málaga", Value: "29"},
		{Text: "Madrid", Value: "28"},
		{Text: "Alicante/Alacant", Value: "03"},
	}
	cases := []struct {
		name    string
		options []selectOption
		value   string
		want    int
	}{
		{"exact text", tiposVia, "Calle", 2},
		{"exact value code", tiposVia, "PZ", 3},
		{"abbreviated street type expands", tiposVia, "AVDA", 1},
		{"dotted abbreviation expands", tiposVia, "CL.", 2},
		{"diacritic-stripped equality", provincias, "MALAGA", 0},
		{"substring on composite label", provincias, "Alicante", 2},
		{"no match", provincias, "Cuenca", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchSelectOption(tc.options, tc.value); got != tc.want {
				t.Errorf("matchSelectOption(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestMatchSelectOptionExactBeatsEarlierSubstring(t *testing.T) {
	options := []selectOption{
		{Text: "Alicante/Alacant", Value: "03"},
		{Text: "Cante", Value: "99"},
	}
	if got := matchSelectOption(options, "Cante"); got != 1 {
		t.Fatalf("match = %d, want the exact option over the earlier substring hit", got)
	}
}
