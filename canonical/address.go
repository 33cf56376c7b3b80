package canonical

import (
	"regexp"
	"strings"
)

// AddressParts holds the structured tokens extracted from a free-text street
// value. Street is the remaining text after the matched labeled tokens were
// consumed.
type AddressParts struct {
	Street   string
	Numero   string
	Escalera string
	Piso     string
	Puerta   string
}

var addressTokenPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"numero", regexp.MustCompile(`(?i)\b(?:n[úu]m(?:ero)?\.?|num\.?)\s*([0-9A-Z][0-9A-Z\-]*)\b`)},
	{"escalera", regexp.MustCompile(`(?i)\b(?:escalera|esc\.?|portal|bloque)\s*([0-9A-Z][0-9A-Z\-]*)\b`)},
	{"piso", regexp.MustCompile(`(?i)\b(?:piso|planta)\s*([0-9A-Zºª][0-9A-Zºª\-]*)\b`)},
	{"puerta", regexp.MustCompile(`(?i)\b(?:puerta|pta\.?|casa)\s*([0-9A-Z][0-9A-Z\-]*)\b`)},
}

// SplitAddressDetails extracts numero/escalera/piso/puerta suffixes from a
// free-text street value. Each matched span is removed from the working text,
// so the returned Street excludes the labeled tokens.
func SplitAddressDetails(street string) AddressParts {
	raw := CollapseSpaces(street)
	if raw == "" {
		return AddressParts{}
	}

	work := " " + raw + " "
	var parts AddressParts
	for _, p := range addressTokenPatterns {
		loc := p.re.FindStringSubmatchIndex(work)
		if loc == nil {
			continue
		}
		token := strings.ToUpper(strings.TrimSpace(work[loc[2]:loc[3]]))
		switch p.kind {
		case "numero":
			parts.Numero = token
		case "escalera":
			parts.Escalera = token
		case "piso":
			parts.Piso = token
		case "puerta":
			parts.Puerta = token
		}
		work = work[:loc[0]] + " " + work[loc[1]:]
	}
	parts.Street = CollapseSpaces(work)
	return parts
}

var postalLabelNoise = map[string]struct{}{
	"CP":            {},
	"C.P":           {},
	"C.P.":          {},
	"CODIGO POSTAL": {},
	"CÓDIGO POSTAL": {},
}

// SanitizeFloorToken normalizes a floor token, discarding postal-code label
// variants that OCR sometimes drops into the floor column.
func SanitizeFloorToken(v string) string {
	upper := strings.ToUpper(CollapseSpaces(v))
	if _, noise := postalLabelNoise[upper]; noise {
		return ""
	}
	return CollapseSpaces(v)
}

// cyrillicLookalikes transliterates Cyrillic letters visually identical to
// Latin ones. OCR of door letters on scanned documents confuses the two.
var cyrillicLookalikes = map[rune]rune{
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H',
	'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T', 'Х': 'X',
}

// NormalizeDoorToken uppercases a door token and maps Cyrillic lookalike
// letters to their Latin forms.
func NormalizeDoorToken(v string) string {
	raw := strings.ToUpper(CollapseSpaces(v))
	if raw == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if lat, ok := cyrillicLookalikes[r]; ok {
			return lat
		}
		return r
	}, raw)
}

var (
	compactFloorDoorRe = regexp.MustCompile(`^(\d{1,3})\s*[ºª]?\s*([A-Z])$`)
	compactFloorRe     = regexp.MustCompile(`^(\d{1,3})\s*([A-Z])$`)
)

// SplitCompactFloorDoor splits compact floor tokens like "5C" into separate
// floor and door parts. When a door value is already present it is only
// deduplicated out of the floor token, never overwritten.
func SplitCompactFloorDoor(piso, puerta string) (string, string) {
	floor := SanitizeFloorToken(piso)
	door := NormalizeDoorToken(puerta)
	if floor != "" && door != "" {
		if m := compactFloorDoorRe.FindStringSubmatch(strings.ToUpper(floor)); m != nil && m[2] == door {
			return m[1], door
		}
	}
	if floor != "" && door == "" {
		if m := compactFloorRe.FindStringSubmatch(strings.ToUpper(floor)); m != nil {
			return m[1], m[2]
		}
	}
	return floor, door
}

// ComposeFloorDoor builds the combined "piso puerta" display token used by
// forms with a single floor/door box. A door letter already contained in the
// floor token is not re-appended (prevents "5C C").
func ComposeFloorDoor(piso, puerta string) string {
	floor := SanitizeFloorToken(piso)
	door := CollapseSpaces(puerta)
	if floor != "" && door != "" {
		if dn := NormalizeToken(door); dn != "" && strings.Contains(NormalizeToken(floor), dn) {
			return floor
		}
		return floor + " " + door
	}
	if floor != "" {
		return floor
	}
	return door
}

// streetAbbreviations expands the usual Spanish street-type abbreviations
// found in OCR output.
var streetAbbreviations = map[string]string{
	"C": "Calle", "CL": "Calle",
	"AV": "Avenida", "AVDA": "Avenida",
	"PZ": "Plaza", "PL": "Plaza",
	"PS": "Paseo", "PSO": "Paseo",
	"CR": "Carretera", "CTRA": "Carretera",
	"CM": "Camino", "CMNO": "Camino",
	"TR": "Travesia", "TRV": "Travesia",
	"PJE": "Pasaje", "PJ": "Pasaje",
	"URB": "Urbanizacion",
	"GL": "Glorieta", "GTA": "Glorieta",
	"RDA": "Ronda",
	"POL": "Poligono", "PG": "Poligono",
	"PB": "Planta Baja", "PBJ": "Planta Baja",
	"BJ": "Bajo",
	"ENT": "Entresuelo", "PRAL": "Principal",
	"ESC": "Escalera", "PTA": "Puerta",
	"IZQ": "Izquierda", "DCHA": "Derecha",
}

// ExpandStreetAbbreviations replaces known abbreviation tokens with their
// full street-type names.
func ExpandStreetAbbreviations(address string) string {
	tokens := strings.Fields(address)
	for i, tok := range tokens {
		key := strings.ToUpper(strings.TrimRight(tok, "."))
		if full, ok := streetAbbreviations[key]; ok {
			tokens[i] = full
		}
	}
	return CollapseSpaces(strings.Join(tokens, " "))
}
