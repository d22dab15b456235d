// Package morph is the boundary around part-of-speech analysis and inflection.
//
// Callers depend only on Analyzer. A nil Analyzer means the capability is
// absent and reordering is skipped.
package morph

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable reports that no analyzer could be constructed or reached.
var ErrUnavailable = errors.New("morphological analyzer unavailable")

type POS int

const (
	POSOther POS = iota
	POSNoun
	POSPronoun
	POSAdjFull
	POSAdjShort
)

func (p POS) String() string {
	switch p {
	case POSNoun:
		return "NOUN"
	case POSPronoun:
		return "NPRO"
	case POSAdjFull:
		return "ADJF"
	case POSAdjShort:
		return "ADJS"
	default:
		return "OTHER"
	}
}

type Gender int

const (
	GenderNone Gender = iota
	GenderMasc
	GenderFemn
	GenderNeut
)

func (g Gender) String() string {
	switch g {
	case GenderMasc:
		return "masc"
	case GenderFemn:
		return "femn"
	case GenderNeut:
		return "neut"
	default:
		return ""
	}
}

type Number int

const (
	NumberSing Number = iota
	NumberPlur
)

func (n Number) String() string {
	if n == NumberPlur {
		return "plur"
	}
	return "sing"
}

type Case int

const (
	CaseNone Case = iota
	CaseNomn
	CaseGent
	CaseDatv
	CaseAccs
	CaseAblt
	CaseLoct
)

var caseNames = map[Case]string{
	CaseNomn: "nomn",
	CaseGent: "gent",
	CaseDatv: "datv",
	CaseAccs: "accs",
	CaseAblt: "ablt",
	CaseLoct: "loct",
}

func (c Case) String() string {
	return caseNames[c]
}

// Tag is the grammatical reading of one word.
type Tag struct {
	POS    POS
	Gender Gender
	Number Number
	Case   Case
}

func (t Tag) IsNoun() bool {
	return t.POS == POSNoun || t.POS == POSPronoun
}

func (t Tag) IsAdjective() bool {
	return t.POS == POSAdjFull || t.POS == POSAdjShort
}

// Features is the target form requested from Inflect. GenderNone leaves the
// gender unconstrained.
type Features struct {
	Number Number
	Case   Case
	Gender Gender
}

// Grammemes renders f in OpenCorpora notation, e.g. [sing nomn masc].
func (f Features) Grammemes() []string {
	out := []string{f.Number.String()}
	if f.Case != CaseNone {
		out = append(out, f.Case.String())
	}
	if f.Gender != GenderNone {
		out = append(out, f.Gender.String())
	}
	return out
}

// Analyzer answers part-of-speech questions and produces inflected forms.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, word string) (Tag, error)
	// Inflect returns ok=false when the requested form does not exist.
	Inflect(ctx context.Context, word string, f Features) (string, bool, error)
}

// ParseTag reads an OpenCorpora tag string such as "NOUN,inan,masc sing,nomn".
// Unknown grammemes are ignored.
func ParseTag(s string) Tag {
	var t Tag
	for _, g := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		switch g {
		case "NOUN":
			t.POS = POSNoun
		case "NPRO":
			t.POS = POSPronoun
		case "ADJF":
			t.POS = POSAdjFull
		case "ADJS":
			t.POS = POSAdjShort
		case "masc":
			t.Gender = GenderMasc
		case "femn":
			t.Gender = GenderFemn
		case "neut":
			t.Gender = GenderNeut
		case "sing":
			t.Number = NumberSing
		case "plur":
			t.Number = NumberPlur
		default:
			for c, name := range caseNames {
				if g == name {
					t.Case = c
				}
			}
		}
	}
	return t
}
