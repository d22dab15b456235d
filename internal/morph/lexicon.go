package morph

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

type lexiconFile struct {
	Nouns      []nounSpec      `yaml:"nouns"`
	Adjectives []adjectiveSpec `yaml:"adjectives"`
	Pronouns   []string        `yaml:"pronouns"`
	Functional []string        `yaml:"functional"`
}

type nounSpec struct {
	Lemma  string   `yaml:"lemma"`
	Gender string   `yaml:"gender"`
	Plural string   `yaml:"plural"`
	Forms  []string `yaml:"forms"`
}

type adjectiveSpec struct {
	Lemma     string `yaml:"lemma"`
	ShortMasc string `yaml:"short_masc"`
}

type nounEntry struct {
	lemma  string
	gender Gender
	plural string
}

type adjEntry struct {
	stem      string
	masc      string
	shortMasc string
}

type shortForm struct {
	entry *adjEntry
	tag   Tag
}

// Lexicon is a dictionary-and-rules analyzer for Russian catalog vocabulary.
// Nouns, pronouns and function words come from the dictionary; inflected noun
// forms resolve through their snowball stem; adjectives are recognized and
// inflected by ending. It is read-only after construction.
type Lexicon struct {
	nounForms  map[string]*nounEntry
	nounStems  map[string]*nounEntry
	adjectives map[string]*adjEntry
	shortForms map[string]shortForm
	pronouns   map[string]struct{}
	functional map[string]struct{}
}

// LoadLexicon reads a YAML lexicon from path, or the embedded default when
// path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return ParseLexicon(defaultLexicon)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	l := &Lexicon{
		nounForms:  map[string]*nounEntry{},
		nounStems:  map[string]*nounEntry{},
		adjectives: map[string]*adjEntry{},
		shortForms: map[string]shortForm{},
		pronouns:   map[string]struct{}{},
		functional: map[string]struct{}{},
	}

	for _, n := range f.Nouns {
		lemma := fold(n.Lemma)
		if lemma == "" {
			continue
		}
		e := &nounEntry{lemma: lemma, gender: parseGender(n.Gender), plural: fold(n.Plural)}
		l.nounForms[lemma] = e
		if e.plural != "" {
			l.nounForms[e.plural] = e
		}
		for _, form := range n.Forms {
			if form = fold(form); form != "" {
				l.nounForms[form] = e
			}
		}
		l.nounStems[stem(lemma)] = e
	}

	for _, a := range f.Adjectives {
		lemma := fold(a.Lemma)
		s, ending, tag, ok := splitAdjective(lemma)
		if !ok || tag.Case != CaseNomn || tag.Gender != GenderMasc {
			return nil, fmt.Errorf("adjective %q: lemma must be masculine nominative singular", a.Lemma)
		}
		e := &adjEntry{stem: s, masc: ending, shortMasc: fold(a.ShortMasc)}
		l.adjectives[s] = e

		pluralShort := "ы"
		if takesI(s, isSoft(s, ending)) {
			pluralShort = "и"
		}
		l.shortForms[s+"а"] = shortForm{entry: e, tag: Tag{POS: POSAdjShort, Gender: GenderFemn, Case: CaseNomn}}
		l.shortForms[s+"о"] = shortForm{entry: e, tag: Tag{POS: POSAdjShort, Gender: GenderNeut, Case: CaseNomn}}
		l.shortForms[s+pluralShort] = shortForm{entry: e, tag: Tag{POS: POSAdjShort, Number: NumberPlur, Case: CaseNomn}}
		if e.shortMasc != "" {
			l.shortForms[e.shortMasc] = shortForm{entry: e, tag: Tag{POS: POSAdjShort, Gender: GenderMasc, Case: CaseNomn}}
		}
	}

	for _, p := range f.Pronouns {
		if p = fold(p); p != "" {
			l.pronouns[p] = struct{}{}
		}
	}
	for _, w := range f.Functional {
		if w = fold(w); w != "" {
			l.functional[w] = struct{}{}
		}
	}
	return l, nil
}

func (l *Lexicon) Analyze(_ context.Context, word string) (Tag, error) {
	tag, _ := l.resolve(fold(word))
	return tag, nil
}

func (l *Lexicon) Inflect(_ context.Context, word string, f Features) (string, bool, error) {
	if f.Case != CaseNone && f.Case != CaseNomn {
		return "", false, nil
	}
	w := fold(word)
	tag, noun := l.resolve(w)

	var form string
	switch {
	case tag.POS == POSNoun && noun != nil:
		form = noun.lemma
		if f.Number == NumberPlur {
			form = noun.plural
		}
	case tag.POS == POSAdjShort:
		form = l.inflectShort(w, f)
	case tag.POS == POSAdjFull:
		form = l.inflectFull(w, tag, f)
	}
	if form == "" {
		return "", false, nil
	}
	return matchCase(word, form), true, nil
}

func (l *Lexicon) resolve(w string) (Tag, *nounEntry) {
	if w == "" {
		return Tag{}, nil
	}
	if _, ok := l.functional[w]; ok {
		return Tag{}, nil
	}
	if _, ok := l.pronouns[w]; ok {
		return Tag{POS: POSPronoun, Case: CaseNomn}, nil
	}
	if e, ok := l.nounForms[w]; ok {
		return e.tag(w), e
	}
	if sf, ok := l.shortForms[w]; ok {
		return sf.tag, nil
	}
	if s, _, tag, ok := splitAdjective(w); ok {
		if _, known := l.adjectives[s]; known {
			return tag, nil
		}
	}
	if e, ok := l.nounStems[stem(w)]; ok {
		return e.tag(w), e
	}
	if _, ending, tag, ok := splitAdjective(w); ok && !weakEndings[ending] {
		return tag, nil
	}
	return Tag{}, nil
}

func (l *Lexicon) inflectFull(w string, tag Tag, f Features) string {
	s, ending, _, ok := splitAdjective(w)
	if !ok {
		return ""
	}

	masc := ""
	soft := isSoft(s, ending)
	if e, known := l.adjectives[s]; known {
		masc = e.masc
		soft = isSoft(s, masc)
	} else if tag.Gender == GenderMasc && tag.Case == CaseNomn && tag.Number == NumberSing {
		masc = ending
	}
	if masc == "" {
		masc = "ый"
		if takesI(s, soft) {
			masc = "ий"
		}
	}

	if f.Number == NumberPlur {
		if takesI(s, soft) {
			return s + "ие"
		}
		return s + "ые"
	}

	switch targetGender(f.Gender, tag.Gender) {
	case GenderFemn:
		if soft {
			return s + "яя"
		}
		return s + "ая"
	case GenderNeut:
		if soft || (isSibilant(lastRune(s)) && masc != "ой") {
			return s + "ее"
		}
		return s + "ое"
	default:
		return s + masc
	}
}

func (l *Lexicon) inflectShort(w string, f Features) string {
	sf := l.shortForms[w]
	e := sf.entry
	if e == nil {
		return ""
	}
	if f.Number == NumberPlur {
		if takesI(e.stem, isSoft(e.stem, e.masc)) {
			return e.stem + "и"
		}
		return e.stem + "ы"
	}
	switch targetGender(f.Gender, sf.tag.Gender) {
	case GenderFemn:
		return e.stem + "а"
	case GenderNeut:
		return e.stem + "о"
	default:
		return e.shortMasc
	}
}

func (e *nounEntry) tag(w string) Tag {
	t := Tag{POS: POSNoun, Gender: e.gender}
	switch {
	case w == e.lemma:
		t.Case = CaseNomn
	case e.plural != "" && w == e.plural:
		t.Number = NumberPlur
		t.Case = CaseNomn
	case hasAnySuffix(w, "ов", "ев", "ам", "ям", "ами", "ями", "ах", "ях"):
		t.Number = NumberPlur
	}
	return t
}

var adjectiveEndings = []struct {
	ending string
	tag    Tag
}{
	{"ыми", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseAblt}},
	{"ими", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseAblt}},
	{"ого", Tag{POS: POSAdjFull, Case: CaseGent}},
	{"его", Tag{POS: POSAdjFull, Case: CaseGent}},
	{"ому", Tag{POS: POSAdjFull, Case: CaseDatv}},
	{"ему", Tag{POS: POSAdjFull, Case: CaseDatv}},
	{"ый", Tag{POS: POSAdjFull, Gender: GenderMasc, Case: CaseNomn}},
	{"ий", Tag{POS: POSAdjFull, Gender: GenderMasc, Case: CaseNomn}},
	{"ой", Tag{POS: POSAdjFull, Gender: GenderMasc, Case: CaseNomn}},
	{"ая", Tag{POS: POSAdjFull, Gender: GenderFemn, Case: CaseNomn}},
	{"яя", Tag{POS: POSAdjFull, Gender: GenderFemn, Case: CaseNomn}},
	{"ое", Tag{POS: POSAdjFull, Gender: GenderNeut, Case: CaseNomn}},
	{"ее", Tag{POS: POSAdjFull, Gender: GenderNeut, Case: CaseNomn}},
	{"ые", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseNomn}},
	{"ие", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseNomn}},
	{"ую", Tag{POS: POSAdjFull, Gender: GenderFemn, Case: CaseAccs}},
	{"юю", Tag{POS: POSAdjFull, Gender: GenderFemn, Case: CaseAccs}},
	{"ых", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseGent}},
	{"их", Tag{POS: POSAdjFull, Number: NumberPlur, Case: CaseGent}},
	{"ым", Tag{POS: POSAdjFull, Case: CaseAblt}},
	{"им", Tag{POS: POSAdjFull, Case: CaseAblt}},
	{"ом", Tag{POS: POSAdjFull, Case: CaseLoct}},
	{"ем", Tag{POS: POSAdjFull, Case: CaseLoct}},
	{"ей", Tag{POS: POSAdjFull, Gender: GenderFemn, Case: CaseGent}},
}

// weakEndings collide with common noun endings and are only trusted for
// adjectives listed in the lexicon.
var weakEndings = map[string]bool{"ым": true, "им": true, "ом": true, "ем": true, "ей": true}

const minAdjectiveStem = 3

func splitAdjective(w string) (string, string, Tag, bool) {
	for _, e := range adjectiveEndings {
		if !strings.HasSuffix(w, e.ending) {
			continue
		}
		s := strings.TrimSuffix(w, e.ending)
		if utf8.RuneCountInString(s) < minAdjectiveStem || !isCyrillicWord(s) {
			return "", "", Tag{}, false
		}
		return s, e.ending, e.tag, true
	}
	return "", "", Tag{}, false
}

func isSoft(s, ending string) bool {
	first, _ := utf8.DecodeRuneInString(ending)
	last := lastRune(s)
	switch first {
	case 'я', 'ю':
		return true
	case 'е':
		return !isSibilant(last)
	case 'и':
		return !isVelar(last) && !isSibilant(last)
	default:
		return false
	}
}

// takesI reports whether the stem takes -ие/-и rather than -ые/-ы.
func takesI(s string, soft bool) bool {
	last := lastRune(s)
	return soft || isVelar(last) || (isSibilant(last) && last != 'ц')
}

func targetGender(requested, own Gender) Gender {
	if requested != GenderNone {
		return requested
	}
	if own != GenderNone {
		return own
	}
	return GenderMasc
}

func isVelar(r rune) bool {
	return r == 'г' || r == 'к' || r == 'х'
}

func isSibilant(r rune) bool {
	return r == 'ж' || r == 'ш' || r == 'щ' || r == 'ч' || r == 'ц'
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func isCyrillicWord(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Cyrillic, r) && r != '-' {
			return false
		}
	}
	return s != ""
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func parseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "masc", "m":
		return GenderMasc
	case "femn", "f":
		return GenderFemn
	case "neut", "n":
		return GenderNeut
	default:
		return GenderNone
	}
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}

func stem(w string) string {
	stemmed, err := snowball.Stem(w, "russian", true)
	if err != nil || stemmed == "" {
		return w
	}
	return stemmed
}

// matchCase copies the capitalization pattern of orig onto form.
func matchCase(orig, form string) string {
	letters, upper := 0, 0
	for _, r := range orig {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 2 && upper == letters {
		return strings.ToUpper(form)
	}
	first, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(form)
		return string(unicode.ToUpper(r)) + form[size:]
	}
	return form
}
