package canonical

// provinceByCPPrefix maps the first two digits of a Spanish postal code to
// the province name as it appears in official form selects. 52 entries, one
// per province plus Ceuta and Melilla.
var provinceByCPPrefix = map[string]string{
	"01": "ALAVA",
	"02": "ALBACETE",
	"03": "ALICANTE",
	"04": "ALMERIA",
	"05": "AVILA",
	"06": "BADAJOZ",
	"07": "BALEARES",
	"08": "BARCELONA",
	"09": "BURGOS",
	"10": "CACERES",
	"11": "CADIZ",
	"12": "CASTELLON",
	"13": "CIUDAD REAL",
	"14": "CORDOBA",
	"15": "A CORUNA",
	"16": "CUENCA",
	"17": "GIRONA",
	"18": "GRANADA",
	"19": "GUADALAJARA",
	"20": "GUIPUZCOA",
	"21": "HUELVA",
	"22": "HUESCA",
	"23": "JAEN",
	"24": "LEON",
	"25": "LLEIDA",
	"26": "LA RIOJA",
	"27": "LUGO",
	"28": "MADRID",
	"29": "MALAGA",
	"30": "MURCIA",
	"31": "NAVARRA",
	"32": "OURENSE",
	"33": "ASTURIAS",
	"34": "PALENCIA",
	"35": "LAS PALMAS",
	"36": "PONTEVEDRA",
	"37": "SALAMANCA",
	"38": "SANTA CRUZ DE TENERIFE",
	"39": "CANTABRIA",
	"40": "SEGOVIA",
	"41": "SEVILLA",
	"42": "SORIA",
	"43": "TARRAGONA",
	"44": "TERUEL",
	"45": "TOLEDO",
	"46": "VALENCIA",
	"47": "VALLADOLID",
	"48": "VIZCAYA",
	"49": "ZAMORA",
	"50": "ZARAGOZA",
	"51": "CEUTA",
	"52": "MELILLA",
}

// ProvinceForPostalCode infers the Spanish province from the first two
// digits of a postal code. Unmapped or short codes yield the empty string.
func ProvinceForPostalCode(cp string) string {
	digits := nonDigitRe.ReplaceAllString(cp, "")
	if len(digits) < 2 {
		return ""
	}
	return provinceByCPPrefix[digits[:2]]
}
