package normalize

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"nomenpairs/internal"
	"nomenpairs/internal/morph"
)

type stubAnalyzer struct {
	tags       map[string]morph.Tag
	forms      map[string]string
	analyzeErr error
	inflectErr error
}

func (s *stubAnalyzer) Analyze(_ context.Context, word string) (morph.Tag, error) {
	if s.analyzeErr != nil {
		return morph.Tag{}, s.analyzeErr
	}
	return s.tags[strings.ToLower(word)], nil
}

func (s *stubAnalyzer) Inflect(_ context.Context, word string, _ morph.Features) (string, bool, error) {
	if s.inflectErr != nil {
		return "", false, s.inflectErr
	}
	form, ok := s.forms[word]
	return form, ok, nil
}

func steelBoltAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{
		tags: map[string]morph.Tag{
			"стальной": {POS: morph.POSAdjFull, Gender: morph.GenderMasc},
			"болт":     {POS: morph.POSNoun, Gender: morph.GenderMasc},
		},
		forms: map[string]string{
			"Стальной": "Стальной",
			"болт":     "болт",
		},
	}
}

func TestReorder(t *testing.T) {
	r := NewReorderer(steelBoltAnalyzer(), nil, DefaultLookahead, nil)
	got := r.Reorder(context.Background(), []string{"Стальной", "болт"})
	want := []string{"болт", "стальной"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reorder = %v, want %v", got, want)
	}
}

func TestReorderKeepsSurroundingTokens(t *testing.T) {
	r := NewReorderer(steelBoltAnalyzer(), nil, DefaultLookahead, nil)
	got := r.Reorder(context.Background(), []string{"М10", "Стальной", "болт", "ГОСТ"})
	want := []string{"болт", "стальной", "М10", "ГОСТ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reorder = %v, want %v", got, want)
	}
}

func TestReorderNoChange(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		r      *Reorderer
		tokens []string
	}{
		{name: "no analyzer", r: NewReorderer(nil, nil, 0, nil), tokens: []string{"Стальной", "болт"}},
		{name: "single token", r: NewReorderer(steelBoltAnalyzer(), nil, 0, nil), tokens: []string{"болт"}},
		{name: "noun first", r: NewReorderer(steelBoltAnalyzer(), nil, 0, nil), tokens: []string{"болт", "стальной"}},
		{name: "noun outside lookahead", r: NewReorderer(steelBoltAnalyzer(), nil, 2, nil), tokens: []string{"М10", "Стальной", "болт"}},
		{name: "preceding token not adjective", r: NewReorderer(steelBoltAnalyzer(), nil, 0, nil), tokens: []string{"М10", "болт"}},
		{name: "analyzer failure", r: NewReorderer(&stubAnalyzer{analyzeErr: morph.ErrUnavailable}, nil, 0, nil), tokens: []string{"Стальной", "болт"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]string(nil), tc.tokens...)
			got := tc.r.Reorder(ctx, in)
			if !reflect.DeepEqual(got, tc.tokens) {
				t.Fatalf("Reorder = %v, want %v", got, tc.tokens)
			}
		})
	}
}

func TestReorderSkipsAbbreviations(t *testing.T) {
	a := steelBoltAnalyzer()
	a.tags["пвх"] = morph.Tag{POS: morph.POSNoun}
	r := NewReorderer(a, NewAbbreviations([]string{"ПВХ"}), 0, nil)
	got := r.Reorder(context.Background(), []string{"Стальной", "ПВХ", "болт"})
	want := []string{"Стальной", "ПВХ", "болт"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reorder = %v, want %v", got, want)
	}
}

func TestReorderInflectFailureKeepsWords(t *testing.T) {
	a := steelBoltAnalyzer()
	a.inflectErr = errors.New("inflect down")
	r := NewReorderer(a, nil, 0, nil)
	got := r.Reorder(context.Background(), []string{"Стальной", "болт"})
	want := []string{"болт", "стальной"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reorder = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	plain := New(Options{Abbreviations: []string{"ПВХ", "ГОСТ"}})
	cases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"Стальной болт", "Стальной болт"},
		{"труба 34 x 34", "Труба 34×34"},
		{"КАБЕЛЬ ПВХ 3X2,5", "Кабель ПВХ 3×2,5"},
		{"ТРУБА ГОСТ 3262-75.", "Труба ГОСТ 3262-75"},
		{"«ёлка»\r\nзелёная", "''Елка'' зеленая"},
		{"10 шт", "10 Шт"},
		{"_x000D_", ""},
		{"2 x 3 х 4 * 5", "2×3×4×5"},
		{"профиль 2 x 3 x 4", "Профиль 2×3×4"},
	}
	for _, tc := range cases {
		if got := plain.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeWithAnalyzer(t *testing.T) {
	n := New(Options{Analyzer: steelBoltAnalyzer()})
	if got := n.Normalize("Стальной болт"); got != "Болт стальной" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestNormalizeWithLexicon(t *testing.T) {
	lex, err := morph.LoadLexicon("")
	if err != nil {
		t.Fatal(err)
	}
	n := New(Options{Analyzer: lex, Abbreviations: []string{"ГОСТ"}})
	cases := []struct {
		input string
		want  string
	}{
		{"СТАЛЬНОЙ БОЛТ М10", "Болт стальной М10"},
		{"Стальные болты ГОСТ 7798", "Болт стальной ГОСТ 7798"},
		{"Болты стальные", "Болты стальные"},
		{"для труб", "Для труб"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPair(t *testing.T) {
	n := New(Options{})
	long := strings.Repeat("Ш", 200)
	cases := []struct {
		rec       internal.SourceRecord
		wantFull  string
		wantShort string
	}{
		{rec: internal.SourceRecord{RootID: 1, ItemName: "Болт", TypeMark: "М10"}, wantFull: "Болт М10", wantShort: "Болт М10"},
		{rec: internal.SourceRecord{RootID: 2, ItemName: "  Гайка  ", TypeMark: ""}, wantFull: "Гайка", wantShort: "Гайка"},
		{rec: internal.SourceRecord{RootID: 3}, wantFull: "", wantShort: ""},
		{rec: internal.SourceRecord{RootID: 4, ItemName: long}, wantFull: long, wantShort: strings.Repeat("Ш", internal.ShortNameLimit)},
	}
	for _, tc := range cases {
		got := n.Pair(context.Background(), tc.rec)
		if got.RootID != tc.rec.RootID || got.NameFull != tc.wantFull || got.NameShort != tc.wantShort {
			t.Errorf("Pair(%+v) = %+v", tc.rec, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	inputs := []string{"", "abc", strings.Repeat("я", 150), strings.Repeat("я", 151), strings.Repeat("ab×", 100)}
	for _, s := range inputs {
		got := Truncate(s, internal.ShortNameLimit)
		if n := utf8.RuneCountInString(got); n > internal.ShortNameLimit {
			t.Fatalf("Truncate kept %d runes", n)
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("Truncate(%q) = %q is not a prefix", s, got)
		}
		if utf8.RuneCountInString(s) <= internal.ShortNameLimit && got != s {
			t.Fatalf("Truncate changed short input %q", s)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate produced invalid UTF-8")
		}
	}
}

func TestRawFullName(t *testing.T) {
	if got := RawFullName(" Болт ", " М10 "); got != "Болт М10" {
		t.Fatalf("got %q", got)
	}
	if got := RawFullName("", "М10"); got != "М10" {
		t.Fatalf("got %q", got)
	}
}
