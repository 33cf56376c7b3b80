package fill

import (
	"strings"

	"github.com/hazyhaar/formfill/canonical"
)

// valueForFieldName maps a document field name to the best canonical value
// by naming convention. Only used outside strict mode, and never invents a
// value: anything unrecognized stays blank.
func valueForFieldName(fieldName string, values canonical.ValueMap) string {
	n := canonical.NormalizeToken(fieldName)
	if n == "" {
		return ""
	}
	contains := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(n, s) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("nombreyapellidosdeltitular"):
		return composedFullName(values)
	case contains("piso") && contains("puert"):
		return firstOf(values, "piso_puerta", "piso", "puerta")
	case contains("pasaporte", "passport"):
		return firstOf(values, "pasaporte", "nif_nie")
	case contains("nif", "nie", "document"):
		return values["nif_nie"]
	case contains("primerapellido", "apellido1"):
		return values["primer_apellido"]
	case contains("segundoapellido", "apellido2"):
		return values["segundo_apellido"]
	case n == "nombre":
		return values["nombre"]
	case contains("email", "correo"):
		return values["email"]
	case contains("telefono", "phone", "movil"):
		return values["telefono"]
	case contains("apellidosynombre", "nombreyapellidos", "fullname"):
		return values["nombre_apellidos"]
	case contains("apellidos", "surname"):
		return values["nombre_apellidos"]
	case contains("forename"):
		return values["nombre_apellidos"]
	case contains("codigopostal") || n == "cp":
		return values["cp"]
	case contains("municipio", "city"):
		return values["municipio"]
	case contains("provincia", "province"):
		return values["provincia"]
	case contains("tipovia"):
		return values["tipo_via"]
	case contains("domicilioenespana") || n == "domicilio":
		return values["domicilio_en_espana"]
	case contains("nombrevia", "direccion", "calle"):
		return values["nombre_via"]
	case n == "numero" || n == "num" || contains("numero"):
		return values["numero"]
	case contains("fechanacimiento", "birth"):
		return values["fecha_nacimiento"]
	case contains("fecha") && !contains("nacimiento"):
		return values["fecha"]
	case contains("importe"):
		return values["importe_euros"]
	case contains("iban"):
		return values["iban"]
	case contains("nacionalidad", "nationality"):
		return values["nacionalidad"]
	case contains("estadocivil"):
		return values["estado_civil"]
	case contains("lugar") && contains("nac"):
		return values["lugar_nacimiento"]
	case n == "pais" || contains("country"):
		return values["pais_nacimiento"]
	case contains("padre"):
		return values["nombre_padre"]
	case contains("madre"):
		return values["nombre_madre"]
	case contains("representante") && !contains("dni", "nie", "pas"):
		return values["representante_legal"]
	case contains("dniniepas") || (contains("representante") && contains("dni", "nie", "pas")):
		return values["representante_documento"]
	case contains("titulo"):
		return values["titulo_representante"]
	}
	return ""
}

// composedFullName joins given name then both surnames, the order titled
// "nombre y apellidos del titular" on official templates.
func composedFullName(values canonical.ValueMap) string {
	var parts []string
	for _, k := range []string{"nombre", "primer_apellido", "segundo_apellido"} {
		if v := values[k]; v != "" {
			parts = append(parts, v)
		}
	}
	return canonical.CollapseSpaces(strings.Join(parts, " "))
}

func firstOf(values canonical.ValueMap, keys ...string) string {
	for _, k := range keys {
		if v := values[k]; v != "" {
			return v
		}
	}
	return ""
}

// checkboxExpected infers the desired state of a lone checkbox from its
// name and, when present, its mapped key. The single-letter names and the
// CHKBOX variants come from the official immigration templates. Returns
// (state, true) on a confident inference; (false, false) means leave the
// box untouched.
func checkboxExpected(fieldName, mappedKey string, values canonical.ValueMap) (bool, bool) {
	n := canonical.NormalizeToken(fieldName)
	sexo := strings.ToUpper(strings.TrimSpace(values["sexo"]))
	estado := strings.ToUpper(strings.TrimSpace(values["estado_civil"]))
	hijos := strings.ToUpper(strings.TrimSpace(values["hijos_escolarizacion_espana"]))
	nameUpper := strings.ToUpper(strings.TrimSpace(fieldName))
	key := strings.ToLower(strings.TrimSpace(mappedKey))

	estadoFor := func(name string) string {
		if name == "CHKBOX-0" {
			return "S"
		}
		return name
	}
	sexoByToken := func() bool {
		return (strings.Contains(n, "x") && sexo == "X") ||
			(strings.Contains(n, "h") && sexo == "H") ||
			(strings.Contains(n, "m") && sexo == "M")
	}
	estadoByToken := func() bool {
		return (strings.Contains(n, "sp") && estado == "SP") ||
			(strings.Contains(n, "s") && estado == "S") ||
			(strings.Contains(n, "c") && estado == "C") ||
			(strings.Contains(n, "v") && estado == "V") ||
			(strings.Contains(n, "d") && estado == "D")
	}
	hijosByToken := func() bool {
		return ((strings.Contains(n, "si") || strings.HasSuffix(n, "s")) && hijos == "SI") ||
			(strings.Contains(n, "no") && hijos == "NO")
	}

	switch key {
	case "sexo":
		if nameUpper == "M" {
			return sexo == "M", true
		}
		if nameUpper == "CHKBOX" {
			return sexo == "H" || sexo == "X", true
		}
		return sexoByToken(), true
	case "estado_civil":
		switch nameUpper {
		case "C", "V", "D", "SP", "CHKBOX-0":
			return estado == estadoFor(nameUpper), true
		}
		return estadoByToken(), true
	case "hijos_escolarizacion_espana":
		if nameUpper == "NO" {
			return hijos == "NO", true
		}
		if strings.Contains(nameUpper, "HIJAS") || strings.Contains(nameUpper, "HIJOS") {
			return hijos == "SI", true
		}
		return hijosByToken(), true
	}

	switch {
	case nameUpper == "M":
		return sexo == "M", true
	case nameUpper == "CHKBOX":
		return sexo == "H" || sexo == "X", true
	case nameUpper == "C" || nameUpper == "V" || nameUpper == "D" || nameUpper == "SP" || nameUpper == "CHKBOX-0":
		return estado == estadoFor(nameUpper), true
	case nameUpper == "NO":
		return hijos == "NO", true
	case strings.Contains(nameUpper, "HIJAS") || strings.Contains(nameUpper, "HIJOS"):
		return hijos == "SI", true
	case strings.Contains(n, "sexo"):
		return sexoByToken(), true
	case strings.Contains(n, "estadocivil"):
		return estadoByToken(), true
	case strings.Contains(n, "hijos") || strings.Contains(n, "escolarizacion"):
		return hijosByToken(), true
	}
	return false, false
}
