package canonical

import "testing"

func TestBuildValueMapKeysStayInVocabulary(t *testing.T) {
	payloads := []ApplicantPayload{
		{},
		{
			Identity: Identity{NIFNIE: "x1234567z", NombreApellidos: "GARCIA LOPEZ MARIA"},
			Address:  Address{NombreVia: "Gran Via Núm. 12 Esc. B Piso 5C", CP: "28013"},
			Extra:    Extra{Nacionalidad: "ESP", FechaNacimiento: "01/02/1990"},
		},
		{
			Declarant:  Declarant{Fecha: "2024-03-07", Localidad: "Madrid"},
			Assessment: Assessment{ImporteComplementaria: "16,08"},
		},
	}
	for _, p := range payloads {
		vm := BuildValueMap(p)
		if len(vm) != len(fieldKeys) {
			t.Errorf("value map has %d keys, want %d", len(vm), len(fieldKeys))
		}
		for k := range vm {
			if !IsKey(k) {
				t.Errorf("value map produced key %q outside the vocabulary", k)
			}
		}
	}
}

func TestSplitIdentityNumber(t *testing.T) {
	tests := []struct {
		in                     string
		prefix, number, suffix string
	}{
		{"X1234567Z", "X", "1234567", "Z"},
		{"x-1234567-z", "X", "1234567", "Z"},
		{"Y 7654321 F", "Y", "7654321", "F"},
		{"AB12", "", "", ""},
		{"12345678Z", "", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		p, n, s := SplitIdentityNumber(tt.in)
		if p != tt.prefix || n != tt.number || s != tt.suffix {
			t.Errorf("SplitIdentityNumber(%q) = (%q,%q,%q), want (%q,%q,%q)",
				tt.in, p, n, s, tt.prefix, tt.number, tt.suffix)
		}
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, nationality string
		s1, s2, given     string
	}{
		{"GARCIA LOPEZ, MARIA JOSE", "", "GARCIA", "LOPEZ", "MARIA JOSE"},
		{"GARCIA LOPEZ MARIA", "ESP", "GARCIA", "LOPEZ", "MARIA"},
		{"SHEVCHENKO OLENA PETRIVNA", "UKR", "SHEVCHENKO", "", "OLENA PETRIVNA"},
		{"GARCIA MARIA", "ESP", "GARCIA", "", "MARIA"},
		{"CHER", "", "CHER", "", ""},
		{"", "ESP", "", "", ""},
	}
	for _, tt := range tests {
		s1, s2, given := SplitName(tt.name, tt.nationality)
		if s1 != tt.s1 || s2 != tt.s2 || given != tt.given {
			t.Errorf("SplitName(%q, %q) = (%q,%q,%q), want (%q,%q,%q)",
				tt.name, tt.nationality, s1, s2, given, tt.s1, tt.s2, tt.given)
		}
	}
}

func TestExplicitNameOverridesWin(t *testing.T) {
	p := ApplicantPayload{Identity: Identity{
		NombreApellidos: "WRONG SPLIT HERE",
		PrimerApellido:  "GARCIA",
		SegundoApellido: "LOPEZ",
		Nombre:          "MARIA",
	}}
	vm := BuildValueMap(p)
	if vm["primer_apellido"] != "GARCIA" || vm["segundo_apellido"] != "LOPEZ" || vm["nombre"] != "MARIA" {
		t.Errorf("overrides not respected: %q %q %q",
			vm["primer_apellido"], vm["segundo_apellido"], vm["nombre"])
	}
	if vm["nombre_apellidos"] != "GARCIA LOPEZ MARIA" {
		t.Errorf("nombre_apellidos = %q", vm["nombre_apellidos"])
	}
}

func TestProvinceInferredFromPostalCode(t *testing.T) {
	p := ApplicantPayload{Address: Address{CP: "28013"}}
	if got := BuildValueMap(p)["provincia"]; got != "MADRID" {
		t.Errorf("provincia = %q, want MADRID", got)
	}

	p = ApplicantPayload{Address: Address{CP: "28013", Provincia: "Barcelona"}}
	if got := BuildValueMap(p)["provincia"]; got != "Barcelona" {
		t.Errorf("explicit provincia overridden: %q", got)
	}

	p = ApplicantPayload{Address: Address{CP: "99999"}}
	if got := BuildValueMap(p)["provincia"]; got != "" {
		t.Errorf("unmapped prefix should yield empty, got %q", got)
	}
}
