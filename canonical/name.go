package canonical

import "strings"

var spanishNationalities = map[string]struct{}{
	"ESP":    {},
	"ESPAÑA": {},
	"ESPANA": {},
	"SPAIN":  {},
}

// SplitName splits a full-name string into (surname1, surname2, given).
//
// An "APELLIDOS, NOMBRE" form is respected explicitly. Otherwise tokens are
// split on whitespace with a nationality-aware rule: Spanish holders carry
// two surnames (tokens one and two), everyone else one. Two-token inputs
// always yield surname=token1, given=token2 regardless of nationality.
func SplitName(fullName, nationality string) (surname1, surname2, given string) {
	raw := strings.TrimSpace(fullName)
	if raw == "" {
		return "", "", ""
	}

	if left, right, ok := strings.Cut(raw, ","); ok {
		surnames := strings.Fields(left)
		given = strings.TrimSpace(right)
		if len(surnames) > 0 {
			surname1 = surnames[0]
		}
		if len(surnames) > 1 {
			surname2 = strings.Join(surnames[1:], " ")
		}
		return surname1, surname2, given
	}

	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 0:
		return "", "", ""
	case 1:
		return tokens[0], "", ""
	case 2:
		return tokens[0], "", tokens[1]
	}

	nat := strings.ToUpper(strings.TrimSpace(nationality))
	if _, spanish := spanishNationalities[nat]; spanish {
		return tokens[0], tokens[1], strings.Join(tokens[2:], " ")
	}
	return tokens[0], "", strings.Join(tokens[1:], " ")
}

// nationalityNames maps ISO-3166 alpha-3 codes to the country names Spanish
// form selects use. Unknown codes pass through unchanged.
var nationalityNames = map[string]string{
	"UKR": "UCRANIA",
	"ESP": "ESPAÑA",
	"DEU": "ALEMANIA",
	"FRA": "FRANCIA",
	"ITA": "ITALIA",
	"PRT": "PORTUGAL",
	"POL": "POLONIA",
	"ROU": "RUMANIA",
	"RUS": "RUSIA",
}

// NationalityForSelect maps a nationality code to the option text Spanish
// portal selects expect.
func NationalityForSelect(v string) string {
	code := strings.ToUpper(strings.TrimSpace(v))
	if code == "" {
		return ""
	}
	if name, ok := nationalityNames[code]; ok {
		return name
	}
	return v
}
