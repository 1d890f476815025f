package console

import "testing"

func TestNormaliseLine(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"   ":            "",
		"list":           "/list",
		" /spyperm list": "/spyperm list",
		"stop\r":         "/stop",
	}
	for in, want := range cases {
		if got := normaliseLine(in); got != want {
			t.Fatalf("normaliseLine(%q) = %q, want %q", in, got, want)
		}
	}
}
