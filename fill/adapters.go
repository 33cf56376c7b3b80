package fill

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/formfill/canonical"
)

// adapter fills fields by target-specific naming conventions. Adapters run
// in order after explicit mappings, each only touching keys the page still
// exposes empty matches for.
type adapter struct {
	name  string
	apply func(p *rod.Page, values canonical.ValueMap, res *Result) error
}

// pickAdapters selects the adapter chain for a target: the public
// administration fee form gets its dedicated control-name adapter, every
// HTML target gets the generic label-based one.
func pickAdapters(target string) []adapter {
	var out []adapter
	if u, err := url.Parse(target); err == nil {
		host := strings.ToLower(u.Hostname())
		path := strings.ToLower(u.Path)
		if strings.Contains(host, "sede.administracionespublicas.gob.es") && strings.HasPrefix(path, "/tasaspdf") {
			out = append(out, adapter{name: "admin_tasas_pdf", apply: applyAdminTasas})
		}
	}
	out = append(out, adapter{name: "generic_html", apply: applyGenericHTML})
	return out
}

// applyAdminTasas targets the Ctrl_* control names of the
// sede.administracionespublicas.gob.es fee form (modelo 790).
func applyAdminTasas(p *rod.Page, values canonical.ValueMap, res *Result) error {
	surname1, surname2, given := canonical.SplitName(values["nombre_apellidos"], values["nacionalidad"])
	nationality := canonical.NationalityForSelect(values["nacionalidad"])

	type textField struct {
		key, value, selector string
	}
	for _, f := range []textField{
		{"nif_nie", values["nif_nie"], "#Ctrl_NIFRem, input[name='Ctrl_NIFRem']"},
		{"primer_apellido", surname1, "#Ctrl_Apellido1, input[name='Ctrl_Apellido1']"},
		{"segundo_apellido", surname2, "#Ctrl_Apellido2, input[name='Ctrl_Apellido2']"},
		{"nombre", given, "#Ctrl_NombreRem, input[name='Ctrl_NombreRem']"},
		{"nombre_via", values["nombre_via"], "#Ctrl_ViaDom, input[name='Ctrl_ViaDom']"},
		{"numero", values["numero"], "#Ctrl_NumeroDom, input[name='Ctrl_NumeroDom']"},
		{"escalera", values["escalera"], "#Ctrl_EscaleraDom, input[name='Ctrl_EscaleraDom']"},
		{"piso", values["piso"], "#Ctrl_PisoDom, input[name='Ctrl_PisoDom']"},
		{"puerta", values["puerta"], "#Ctrl_PuertaDom, input[name='Ctrl_PuertaDom']"},
		{"municipio", values["municipio"], "#Ctrl_MunicipioDom, input[name='Ctrl_MunicipioDom']"},
		{"cp", values["cp"], "#Ctrl_CPostalDom, input[name='Ctrl_CPostalDom']"},
		{"telefono", values["telefono"], "#Ctrl_TelefonoDom, input[name='Ctrl_TelefonoDom']"},
	} {
		if f.value != "" && setIfPossible(p, f.selector, f.value) {
			res.fill(f.key)
		}
	}

	if nationality != "" && selectIfPossible(p, "#Ctrl_SelNacionalidad, select[name='Ctrl_SelNacionalidad']", nationality) {
		res.fill("nacionalidad")
	}
	if values["tipo_via"] != "" && selectIfPossible(p, "#Ctrl_TipoViaDom, select[name='Ctrl_TipoViaDom']", values["tipo_via"]) {
		res.fill("tipo_via")
	}

	provinceSel := "#Ctrl_ProvinciaDom, select[name='Ctrl_ProvinciaDom']"
	selected := values["provincia"] != "" && selectIfPossible(p, provinceSel, values["provincia"])
	if !selected {
		if inferred := canonical.ProvinceForPostalCode(values["cp"]); inferred != "" {
			selected = selectIfPossible(p, provinceSel, inferred)
		}
	}
	if selected {
		res.fill("provincia")
	}
	return nil
}

// applyGenericHTML matches fields on any HTML form through visible label
// text, falling back to common selector conventions for a few keys.
func applyGenericHTML(p *rod.Page, values canonical.ValueMap, res *Result) error {
	surname1, surname2, given := canonical.SplitName(values["nombre_apellidos"], values["nacionalidad"])
	nationality := canonical.NationalityForSelect(values["nacionalidad"])

	type labeled struct {
		key      string
		value    string
		patterns []string
	}
	for _, f := range []labeled{
		{"nif_nie", values["nif_nie"], []string{`NIF\s*/\s*NIE`, `NIE`, `NIF`}},
		{"primer_apellido", surname1, []string{`Primer apellido`, `Raz[oó]n Social`}},
		{"segundo_apellido", surname2, []string{`Segundo apellido`}},
		{"nombre", given, []string{`^Nombre`}},
		{"nombre_via", values["nombre_via"], []string{`Nombre de la v[ií]a p[uú]blica`, `v[ií]a p[uú]blica`}},
		{"numero", values["numero"], []string{`Num`, `N[uú]m`}},
		{"escalera", values["escalera"], []string{`Esc`}},
		{"piso", values["piso"], []string{`Piso`}},
		{"puerta", values["puerta"], []string{`Pta`}},
		{"municipio", values["municipio"], []string{`Municipio`}},
		{"cp", values["cp"], []string{`C\.?\s*Postal`, `C[oó]digo postal`, `CP`}},
		{"telefono", values["telefono"], []string{`Tel[eé]fono`, `Phone`}},
	} {
		if f.value != "" && fillByLabel(p, f.patterns, f.value) {
			res.fill(f.key)
		}
	}

	if nationality != "" {
		if selectIfPossible(p, "select[name*='nacionalidad' i], select[id*='nacionalidad' i]", nationality) ||
			fillByLabel(p, []string{`Nacionalidad`}, nationality) {
			res.fill("nacionalidad")
		}
	}
	if v := values["tipo_via"]; v != "" {
		if selectIfPossible(p, "select[name*='via' i], select[id*='via' i], select[name*='calle' i]", v) ||
			setIfPossible(p, "#calle, input[name='calle'], input[id='calle']", v) ||
			fillByLabel(p, []string{`Tipo\s+de\s+v[ií]a`, `Calle/plaza/Avda`}, v) {
			res.fill("tipo_via")
		}
	}
	if v := values["provincia"]; v != "" {
		if selectIfPossible(p, "select[name*='provincia' i], select[id*='provincia' i]", v) ||
			fillByLabel(p, []string{`Provincia`}, v) {
			res.fill("provincia")
		}
	}

	type bySelector struct {
		key       string
		selectors string
		patterns  []string
	}
	for _, f := range []bySelector{
		{"email", "#email, input[type='email'], input[name*='mail' i], input[name*='email' i]", []string{`mail`, `email`, `correo`}},
		{"fecha", "#fecha, input[name*='fecha' i], input[type='date']", []string{`fecha`}},
		{"nombre_apellidos", "#full_name, input[name*='full_name' i], input[name*='nombre_apellidos' i]", []string{`nombre\s*y\s*apellidos`, `apellidos\s*y\s*nombre`, `full\s*name`}},
	} {
		v := values[f.key]
		if v == "" {
			continue
		}
		if setIfPossible(p, f.selectors, v) || fillByLabel(p, f.patterns, v) {
			res.fill(f.key)
		}
	}
	return nil
}
