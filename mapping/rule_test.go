package mapping

import "testing"

func TestParseRule(t *testing.T) {
	tests := []struct {
		expr    string
		key     string
		literal string
		ok      bool
	}{
		{"sexo == 'M'", "sexo", "M", true},
		{`estado_civil == "SP"`, "estado_civil", "SP", true},
		{"forma_pago=='efectivo'", "forma_pago", "efectivo", true},
		{"SEXO == 'H'", "sexo", "H", true},
		{"", "", "", false},
		{"sexo != 'M'", "", "", false},
		{"sexo == M", "", "", false},
		{"sexo == 'M' && 1", "", "", false},
		{"sexo == ''", "", "", false},
		{"== 'M'", "", "", false},
	}
	for _, tt := range tests {
		r, err := ParseRule(tt.expr)
		if tt.ok != (err == nil) {
			t.Errorf("ParseRule(%q) err = %v, want ok=%v", tt.expr, err, tt.ok)
			continue
		}
		if !tt.ok {
			continue
		}
		if r.Key != tt.key || r.Literal != tt.literal {
			t.Errorf("ParseRule(%q) = %+v, want key=%q literal=%q", tt.expr, r, tt.key, tt.literal)
		}
	}
}

func TestRuleEval(t *testing.T) {
	r, err := ParseRule("sexo == 'M'")
	if err != nil {
		t.Fatal(err)
	}
	if r.Eval(map[string]string{"sexo": "H"}) {
		t.Error("rule should evaluate false for sexo=H")
	}
	if !r.Eval(map[string]string{"sexo": "M"}) {
		t.Error("rule should evaluate true for sexo=M")
	}
	if !r.Eval(map[string]string{"sexo": " M "}) {
		t.Error("values are compared trimmed")
	}
	if r.Eval(nil) {
		t.Error("missing key should evaluate false")
	}
}
