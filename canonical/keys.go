// Package canonical builds the flat canonical field map consumed by the fill
// engine. The vocabulary of keys is a fixed, versioned contract between the
// external payload normalizer and this module: values for keys outside the
// vocabulary are never produced and consumers emitting unknown keys are
// ignored.
//
// Everything in this package is a pure transform: no I/O, no errors for
// normal inputs. Empty payload fields simply yield empty strings.
package canonical

// fieldKeys is the closed vocabulary, in fill priority order. Spanish key
// names are part of the wire contract with the payload normalizer and the
// stored mapping templates; do not rename.
var fieldKeys = []string{
	"nif_nie",
	"nif_nie_prefix",
	"nif_nie_number",
	"nif_nie_suffix",
	"pasaporte",
	"nombre_apellidos",
	"primer_apellido",
	"segundo_apellido",
	"nombre",
	"sexo",
	"tipo_via",
	"nombre_via",
	"domicilio_en_espana",
	"numero",
	"escalera",
	"piso",
	"puerta",
	"piso_puerta",
	"telefono",
	"municipio",
	"provincia",
	"cp",
	"localidad",
	"fecha",
	"fecha_dia",
	"fecha_mes",
	"fecha_anio",
	"importe_euros",
	"forma_pago",
	"iban",
	"email",
	"fecha_nacimiento",
	"fecha_nacimiento_dia",
	"fecha_nacimiento_mes",
	"fecha_nacimiento_anio",
	"nacionalidad",
	"pais_nacimiento",
	"estado_civil",
	"lugar_nacimiento",
	"nombre_padre",
	"nombre_madre",
	"representante_legal",
	"representante_documento",
	"titulo_representante",
	"hijos_escolarizacion_espana",
}

var keySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(fieldKeys))
	for _, k := range fieldKeys {
		m[k] = struct{}{}
	}
	return m
}()

var keyPriority = func() map[string]int {
	m := make(map[string]int, len(fieldKeys))
	for i, k := range fieldKeys {
		m[k] = i
	}
	return m
}()

// Keys returns the canonical key vocabulary in fill priority order.
// The returned slice is a copy.
func Keys() []string {
	out := make([]string, len(fieldKeys))
	copy(out, fieldKeys)
	return out
}

// IsKey reports whether k belongs to the canonical vocabulary.
func IsKey(k string) bool {
	_, ok := keySet[k]
	return ok
}

// KeyPriority returns the fill priority index of k, or a large value for
// unknown keys so they sort last.
func KeyPriority(k string) int {
	if i, ok := keyPriority[k]; ok {
		return i
	}
	return len(fieldKeys) + 1
}

// ValueMap is a flat canonical-key → string-value mapping derived from one
// ApplicantPayload. It is built once per fill or inspect call and never
// persisted.
type ValueMap map[string]string
