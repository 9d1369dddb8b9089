package utils

import "testing"

func TestSanitizeJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n[1]\n```":           `[1]`,
		"  {\"b\":2} ":            `{"b":2}`,
	}
	for in, want := range cases {
		if got := SanitizeJSON(in); got != want {
			t.Errorf("SanitizeJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeJSONDropsProse(t *testing.T) {
	in := "Aqui está o mapeamento:\n{\"Cód. Cliente\": \"code\"}\nEspero ter ajudado."
	if got := SanitizeJSON(in); got != `{"Cód. Cliente": "code"}` {
		t.Errorf("got %q", got)
	}
}
