package canonical

import "testing"

func TestSplitAddressDetailsConsumesTokens(t *testing.T) {
	parts := SplitAddressDetails("Gran Via Núm. 12 Escalera B Piso 5 Puerta C")
	if parts.Street != "Gran Via" {
		t.Errorf("Street = %q, want %q", parts.Street, "Gran Via")
	}
	if parts.Numero != "12" || parts.Escalera != "B" || parts.Piso != "5" || parts.Puerta != "C" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestSplitAddressDetailsVariants(t *testing.T) {
	tests := []struct {
		in     string
		street string
		numero string
		esc    string
	}{
		{"Calle Mayor num 3", "Calle Mayor", "3", ""},
		{"Paseo del Prado Portal 2", "Paseo del Prado", "", "2"},
		{"Avenida Sol Bloque A Núm. 7", "Avenida Sol", "7", "A"},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		parts := SplitAddressDetails(tt.in)
		if parts.Street != tt.street || parts.Numero != tt.numero || parts.Escalera != tt.esc {
			t.Errorf("SplitAddressDetails(%q) = %+v", tt.in, parts)
		}
	}
}

func TestFloorDoorRoundTrip(t *testing.T) {
	if got := ComposeFloorDoor("2", "B"); got != "2 B" {
		t.Errorf("ComposeFloorDoor(2, B) = %q, want %q", got, "2 B")
	}

	floor, door := SplitCompactFloorDoor("5C", "")
	if floor != "5" || door != "C" {
		t.Errorf("SplitCompactFloorDoor(5C, ) = (%q,%q), want (5,C)", floor, door)
	}

	// Door letter already inside the floor token must not duplicate.
	if got := ComposeFloorDoor("5C", "C"); got != "5C" {
		t.Errorf("ComposeFloorDoor(5C, C) = %q, want %q", got, "5C")
	}
}

func TestSanitizeFloorTokenDropsPostalNoise(t *testing.T) {
	for _, noise := range []string{"CP", "C.P.", "CÓDIGO POSTAL", "codigo postal"} {
		if got := SanitizeFloorToken(noise); got != "" {
			t.Errorf("SanitizeFloorToken(%q) = %q, want empty", noise, got)
		}
	}
	if got := SanitizeFloorToken("3º"); got != "3º" {
		t.Errorf("SanitizeFloorToken(3º) = %q", got)
	}
}

func TestNormalizeDoorTokenTransliteratesCyrillic(t *testing.T) {
	// "С" and "В" below are Cyrillic.
	tests := []struct{ in, want string }{
		{"С", "C"},
		{"В", "B"},
		{"c", "C"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDoorToken(tt.in); got != tt.want {
			t.Errorf("NormalizeDoorToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitDateParts(t *testing.T) {
	tests := []struct {
		in           string
		dd, mm, yyyy string
	}{
		{"7/3/2024", "07", "03", "2024"},
		{"07-03-24", "07", "03", "2024"},
		{"2024-03-07", "07", "03", "2024"},
		{"07032024", "07", "03", "2024"},
		{"07.03.2024", "07", "03", "2024"},
		{"not a date", "", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		dd, mm, yyyy := SplitDateParts(tt.in)
		if dd != tt.dd || mm != tt.mm || yyyy != tt.yyyy {
			t.Errorf("SplitDateParts(%q) = (%q,%q,%q), want (%q,%q,%q)",
				tt.in, dd, mm, yyyy, tt.dd, tt.mm, tt.yyyy)
		}
	}
}

func TestNormalizeASCIIUpper(t *testing.T) {
	if got := NormalizeASCIIUpper("Málaga"); got != "MALAGA" {
		t.Errorf("NormalizeASCIIUpper(Málaga) = %q", got)
	}
	if got := NormalizeASCIIUpper("  españa "); got != "ESPANA" {
		t.Errorf("NormalizeASCIIUpper(españa) = %q", got)
	}
}

func TestExpandStreetAbbreviations(t *testing.T) {
	if got := ExpandStreetAbbreviations("AVDA. de America"); got != "Avenida de America" {
		t.Errorf("ExpandStreetAbbreviations = %q", got)
	}
}
