package normalize

import "testing"

func TestNormalizeTokenCase(t *testing.T) {
	abbr := NewAbbreviations([]string{"ПВХ", "ГОСТ", "IP"})
	cases := []struct {
		token string
		want  string
	}{
		{"ТРУБА", "труба"},
		{"(ТРУБА)", "(труба)"},
		{"ПВХ", "ПВХ"},
		{"(ПВХ),", "(ПВХ),"},
		{"IP", "IP"},
		{"ВВГнг", "ВВГнг"},
		{"М10", "М10"},
		{"А", "А"},
		{"КАБЕЛЬ-КАНАЛ", "КАБЕЛЬ-КАНАЛ"},
		{"--", "--"},
		{"Труба", "Труба"},
	}
	for _, tc := range cases {
		if got := NormalizeTokenCase(tc.token, abbr); got != tc.want {
			t.Errorf("NormalizeTokenCase(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestStripEdges(t *testing.T) {
	cases := map[string]string{
		"(болт),":     "болт",
		"''Момент''": "Момент",
		"М10":        "М10",
		"--":         "",
		"_x_":        "_x_",
	}
	for in, want := range cases {
		if got := StripEdges(in); got != want {
			t.Errorf("StripEdges(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstLetterCase(t *testing.T) {
	if got := upperFirstLetter("3 болта"); got != "3 Болта" {
		t.Fatalf("got %q", got)
	}
	if got := lowerFirstLetter("''Стальной''"); got != "''стальной''" {
		t.Fatalf("got %q", got)
	}
	if got := upperFirstLetter("123"); got != "123" {
		t.Fatalf("got %q", got)
	}
}
