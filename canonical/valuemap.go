package canonical

import (
	"regexp"
	"strings"
)

var identityTripletRe = regexp.MustCompile(`^([A-Z])(\d{7})([A-Z])$`)
var alnumUpperRe = regexp.MustCompile(`[^A-Z0-9]`)

// SplitIdentityNumber splits an identity value matching LETTER + 7 digits +
// LETTER (case-insensitive, punctuation stripped) into the three-box parts
// used by split NIE fields. Non-matching values yield three empty strings.
func SplitIdentityNumber(v string) (prefix, number, suffix string) {
	compact := alnumUpperRe.ReplaceAllString(strings.ToUpper(v), "")
	m := identityTripletRe.FindStringSubmatch(compact)
	if m == nil {
		return "", "", ""
	}
	return m[1], m[2], m[3]
}

// BuildValueMap derives the flat canonical field map from one payload.
// Deterministic and side-effect free; forms expect the exact token formats
// produced here, so changes to the splitting rules are contract changes.
func BuildValueMap(p ApplicantPayload) ValueMap {
	nationality := strings.TrimSpace(p.Extra.Nacionalidad)
	surname1, surname2, given := SplitName(p.Identity.NombreApellidos, nationality)
	if v := strings.TrimSpace(p.Identity.PrimerApellido); v != "" {
		surname1 = v
	}
	if v := strings.TrimSpace(p.Identity.SegundoApellido); v != "" {
		surname2 = v
	}
	if v := strings.TrimSpace(p.Identity.Nombre); v != "" {
		given = v
	}
	fullName := CollapseSpaces(strings.Join(nonEmpty(surname1, surname2, given), " "))
	if fullName == "" {
		fullName = CollapseSpaces(strings.ReplaceAll(p.Identity.NombreApellidos, ",", " "))
	}

	tipoVia := strings.TrimSpace(p.Address.TipoVia)
	rawStreet := strings.TrimSpace(p.Address.NombreVia)
	parts := SplitAddressDetails(rawStreet)
	street := parts.Street
	if street == "" {
		street = rawStreet
	}
	numero := firstNonEmpty(strings.TrimSpace(p.Address.Numero), parts.Numero)
	escalera := firstNonEmpty(strings.TrimSpace(p.Address.Escalera), parts.Escalera)
	piso := firstNonEmpty(SanitizeFloorToken(p.Address.Piso), parts.Piso)
	puerta := firstNonEmpty(strings.TrimSpace(p.Address.Puerta), parts.Puerta)
	piso, puerta = SplitCompactFloorDoor(piso, puerta)

	// Spanish forms usually split the street line from number/floor/door.
	domicilio := strings.TrimSpace(strings.Join(nonEmpty(tipoVia, street), " "))

	nifNIE := strings.ToUpper(strings.TrimSpace(p.Identity.NIFNIE))
	niePrefix, nieNumber, nieSuffix := SplitIdentityNumber(nifNIE)

	fechaDecl := strings.TrimSpace(p.Declarant.Fecha)
	fechaNac := strings.TrimSpace(p.Extra.FechaNacimiento)
	declDD, declMM, declYYYY := SplitDateParts(fechaDecl)
	nacDD, nacMM, nacYYYY := SplitDateParts(fechaNac)

	importe := firstNonEmpty(
		strings.TrimSpace(p.Assessment.ImporteEuros),
		strings.TrimSpace(p.Assessment.Importe),
		strings.TrimSpace(p.Assessment.ImporteComplementaria),
	)

	cp := strings.TrimSpace(p.Address.CP)
	provincia := strings.TrimSpace(p.Address.Provincia)
	if provincia == "" {
		provincia = ProvinceForPostalCode(cp)
	}

	return ValueMap{
		"nif_nie":                     nifNIE,
		"nif_nie_prefix":              niePrefix,
		"nif_nie_number":              nieNumber,
		"nif_nie_suffix":              nieSuffix,
		"pasaporte":                   strings.TrimSpace(p.Identity.Pasaporte),
		"nombre_apellidos":            fullName,
		"primer_apellido":             surname1,
		"segundo_apellido":            surname2,
		"nombre":                      given,
		"sexo":                        strings.TrimSpace(p.Extra.Sexo),
		"tipo_via":                    tipoVia,
		"nombre_via":                  street,
		"domicilio_en_espana":         domicilio,
		"numero":                      numero,
		"escalera":                    escalera,
		"piso":                        piso,
		"puerta":                      puerta,
		"piso_puerta":                 ComposeFloorDoor(piso, puerta),
		"telefono":                    strings.TrimSpace(p.Address.Telefono),
		"municipio":                   strings.TrimSpace(p.Address.Municipio),
		"provincia":                   provincia,
		"cp":                          cp,
		"localidad":                   strings.TrimSpace(p.Declarant.Localidad),
		"fecha":                       fechaDecl,
		"fecha_dia":                   declDD,
		"fecha_mes":                   declMM,
		"fecha_anio":                  declYYYY,
		"importe_euros":               importe,
		"forma_pago":                  strings.TrimSpace(p.Payment.FormaPago),
		"iban":                        strings.TrimSpace(p.Payment.IBAN),
		"email":                       strings.TrimSpace(p.Extra.Email),
		"fecha_nacimiento":            fechaNac,
		"fecha_nacimiento_dia":        nacDD,
		"fecha_nacimiento_mes":        nacMM,
		"fecha_nacimiento_anio":       nacYYYY,
		"nacionalidad":                nationality,
		"pais_nacimiento":             strings.TrimSpace(p.Extra.PaisNacimiento),
		"estado_civil":                strings.TrimSpace(p.Extra.EstadoCivil),
		"lugar_nacimiento":            strings.TrimSpace(p.Extra.LugarNacimiento),
		"nombre_padre":                strings.TrimSpace(p.Extra.NombrePadre),
		"nombre_madre":                strings.TrimSpace(p.Extra.NombreMadre),
		"representante_legal":         strings.TrimSpace(p.Extra.RepresentanteLegal),
		"representante_documento":     strings.TrimSpace(p.Extra.RepresentanteDocumento),
		"titulo_representante":        strings.TrimSpace(p.Extra.TituloRepresentante),
		"hijos_escolarizacion_espana": strings.TrimSpace(p.Extra.HijosEscolarizacionEspana),
	}
}

func nonEmpty(vs ...string) []string {
	out := vs[:0:0]
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
