package quiz

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"Kai'Sa", "kaisa"},
		{"KAI'SA", "kaisa"},
		{"Kha'Zix", "khazix"},
		{"Dr. Mundo", "drmundo"},
		{"  Miss   Fortune  ", "missfortune"},
		{"Jarvan IV", "jarvaniv"},
		{"nunu123", "nunu123"},
		{"!@#$%", ""},
		{"Rúnico", "rnico"}, // accents are stripped, not folded
		{"ç ã é", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeCharsetAndIdempotence(t *testing.T) {
	inputs := []string{
		"", "Kai'Sa", "  aBc-123_x ", "ÀÉÎÕÜ", "木漏れ日", "Bel'Veth!!", "a b c",
	}
	for _, in := range inputs {
		out := Normalize(in)
		for _, r := range out {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				t.Fatalf("Normalize(%q) produced invalid rune %q in %q", in, r, out)
			}
		}
		if again := Normalize(out); again != out {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, again, out)
		}
	}
}
