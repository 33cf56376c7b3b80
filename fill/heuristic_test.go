package fill

import (
	"testing"

	"github.com/hazyhaar/formfill/canonical"
)

func TestValueForFieldName(t *testing.T) {
	values := canonical.ValueMap{
		"nombre":           "OLENA",
		"primer_apellido":  "KOVALENKO",
		"segundo_apellido": "",
		"nombre_apellidos": "KOVALENKO, OLENA",
		"nif_nie":          "X1234567Z",
		"piso_puerta":      "5 C",
		"piso":             "5",
		"cp":               "28013",
		"telefono":         "600111222",
		"fecha":            "01/02/2025",
		"fecha_nacimiento": "03/04/1990",
		"importe_euros":    "16,08",
	}

	cases := []struct {
		field string
		want  string
	}{
		{"Nombre y apellidos del titular", "OLENA KOVALENKO"},
		{"Piso y Puerta", "5 C"},
		{"NIF / NIE", "X1234567Z"},
		{"Teléfono móvil", "600111222"},
		{"Código Postal", "28013"},
		{"Fecha de solicitud", "01/02/2025"},
		{"Fecha de nacimiento", "03/04/1990"},
		{"Importe en euros", "16,08"},
		{"campo desconocido", ""},
	}
	for _, tc := range cases {
		if got := valueForFieldName(tc.field, values); got != tc.want {
			t.Errorf("valueForFieldName(%q) = %q, want %q", tc.field, got, tc.want)
		}
	}
}

func TestCheckboxExpected(t *testing.T) {
	values := canonical.ValueMap{
		"sexo":                        "M",
		"estado_civil":                "C",
		"hijos_escolarizacion_espana": "SI",
	}

	cases := []struct {
		name    string
		field   string
		key     string
		want    bool
		decided bool
	}{
		{"sexo M box checked", "M", "sexo", true, true},
		{"sexo CHKBOX is H or X", "CHKBOX", "sexo", false, true},
		{"estado C box checked", "C", "estado_civil", true, true},
		{"estado V box unchecked", "V", "estado_civil", false, true},
		{"estado CHKBOX-0 is S", "CHKBOX-0", "estado_civil", false, true},
		{"hijos box checked", "Hijos a cargo", "", true, true},
		{"no box unchecked", "NO", "", false, true},
		{"unknown stays untouched", "otra_casilla", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := checkboxExpected(tc.field, tc.key, values)
			if ok != tc.decided {
				t.Fatalf("decided = %v, want %v", ok, tc.decided)
			}
			if ok && got != tc.want {
				t.Fatalf("state = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckboxExpectedWithoutValues(t *testing.T) {
	got, ok := checkboxExpected("M", "sexo", canonical.ValueMap{})
	if !ok || got {
		t.Fatalf("empty sexo should decide unchecked, got (%v, %v)", got, ok)
	}
}
