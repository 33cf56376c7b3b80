package fill

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hazyhaar/formfill/canonical"
	"github.com/hazyhaar/formfill/mapping"
)

// Suggestion is a field descriptor plus a proposed canonical binding for
// operators to review.
type Suggestion struct {
	mapping.FieldDescriptor
	CanonicalKey string  `json:"canonical_key"`
	FieldKind    string  `json:"field_kind"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
	ValuePreview string  `json:"value_preview"`
}

// suggestionPatterns score a field's combined textual signal (label, name,
// id, placeholder, aria label, all collapsed to lowercase alphanumerics)
// against every canonical key.
var suggestionPatterns = map[string][]*regexp.Regexp{
	"nif_nie":                     compileAll(`nif`, `nie`, `document`, `identidad`),
	"pasaporte":                   compileAll(`pasaport`, `passport`),
	"primer_apellido":             compileAll(`primerapellido`, `apellido1`, `firstsurname`, `razonsocial`),
	"segundo_apellido":            compileAll(`segundoapellido`, `2apellido`, `apellido2`, `secondsurname`),
	"nombre":                      compileAll(`^nombre$`, `nombre\*$`, `name`, `forename`),
	"nombre_apellidos":            compileAll(`nombre`, `apellidos`, `razonsocial`, `fullname`),
	"sexo":                        compileAll(`sexo`, `sex`),
	"tipo_via":                    compileAll(`tipovia`, `calleplaza`, `avda`),
	"nombre_via":                  compileAll(`nombrevia`, `viapublica`),
	"domicilio_en_espana":         compileAll(`domicilioenespana`, `domicilio`, `direccion`),
	"numero":                      compileAll(`numero`),
	"escalera":                    compileAll(`escalera`),
	"piso":                        compileAll(`piso`, `planta`),
	"puerta":                      compileAll(`puerta`),
	"telefono":                    compileAll(`telefono`, `phone`, `movil`),
	"municipio":                   compileAll(`municipio`, `ciudad`, `city`),
	"provincia":                   compileAll(`provincia`, `province`),
	"cp":                          compileAll(`cpostal`, `codigopostal`, `postal`),
	"localidad":                   compileAll(`localidad`),
	"fecha":                       compileAll(`fecha`),
	"fecha_dia":                   compileAll(`fecha`, `dia`),
	"fecha_mes":                   compileAll(`fecha`, `mes`),
	"fecha_anio":                  compileAll(`fecha`, `ano`),
	"email":                       compileAll(`email`, `correo`, `mail`),
	"fecha_nacimiento":            compileAll(`fechanac`, `birth`),
	"fecha_nacimiento_dia":        compileAll(`fechanac`, `dia`),
	"fecha_nacimiento_mes":        compileAll(`fechanac`, `mes`),
	"fecha_nacimiento_anio":       compileAll(`fechanac`, `ano`, `year`),
	"nacionalidad":                compileAll(`nacionalidad`, `nationality`),
	"pais_nacimiento":             compileAll(`pais`, `country`),
	"estado_civil":                compileAll(`estadocivil`, `civil`),
	"lugar_nacimiento":            compileAll(`lugarnac`, `birthplace`),
	"nombre_padre":                compileAll(`padre`, `father`),
	"nombre_madre":                compileAll(`madre`, `mother`),
	"representante_legal":         compileAll(`representantelegal`, `representante`),
	"representante_documento":     compileAll(`dni`, `pas`, `dniniepas`, `documentorepresentante`),
	"titulo_representante":        compileAll(`titulo`),
	"hijos_escolarizacion_espana": compileAll(`hijas`, `hijos`, `escolarizacion`),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// SuggestMappings proposes a canonical key per inspected field. Hints from
// the stored template win outright at learned confidence; otherwise the key
// with the most pattern hits on the field's textual signal is proposed, its
// confidence scaled by the hit count. Results order by canonical fill
// priority, then selector.
func SuggestMappings(fields []mapping.FieldDescriptor, values canonical.ValueMap, hints map[string]string) []Suggestion {
	out := make([]Suggestion, 0, len(fields))
	for _, f := range fields {
		kind := mapping.KindText
		switch {
		case f.Type == "radio":
			kind = mapping.KindRadio
		case f.Type == "checkbox":
			kind = mapping.KindCheckbox
		case strings.ToLower(f.Tag) == "select":
			kind = mapping.KindSelect
		}
		signal := canonical.NormalizeToken(strings.Join([]string{
			f.Label, f.Name, f.ID, f.Placeholder, f.AriaLabel,
		}, " "))

		s := Suggestion{FieldDescriptor: f, FieldKind: string(kind), Source: "heuristic"}
		if hint := hints[f.Selector]; canonical.IsKey(hint) {
			s.CanonicalKey = hint
			s.Confidence = 0.99
			s.Source = "learned"
		} else {
			best := 0
			for _, key := range canonical.Keys() {
				score := 0
				for _, re := range suggestionPatterns[key] {
					if re.MatchString(signal) {
						score++
					}
				}
				if score > best {
					best = score
					s.CanonicalKey = key
				}
			}
			if best > 0 {
				s.Confidence = math.Round(math.Min(0.85, 0.5+float64(best)*0.15)*100) / 100
			}
		}
		if s.CanonicalKey != "" {
			s.ValuePreview = values[s.CanonicalKey]
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := canonical.KeyPriority(out[i].CanonicalKey), canonical.KeyPriority(out[j].CanonicalKey)
		if pi != pj {
			return pi < pj
		}
		return out[i].Selector < out[j].Selector
	})
	return out
}
