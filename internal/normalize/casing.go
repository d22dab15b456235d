package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Abbreviations is the protected set of acronyms and units. Membership is
// tested against the upper-case form of a word.
type Abbreviations map[string]struct{}

func NewAbbreviations(list []string) Abbreviations {
	out := make(Abbreviations, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = struct{}{}
		}
	}
	return out
}

func (a Abbreviations) Contains(word string) bool {
	_, ok := a[strings.ToUpper(word)]
	return ok
}

// StripEdges removes non-word characters from both ends of a token.
func StripEdges(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !isWordRune(r)
	})
}

// NormalizeTokenCase lower-cases a shouted word (ТРУБА -> труба) unless it is
// a protected abbreviation. Edge punctuation is kept as is.
func NormalizeTokenCase(token string, abbr Abbreviations) string {
	core := StripEdges(token)
	if core == "" {
		return token
	}
	if isAllCapsWord(core) && !abbr.Contains(core) {
		return strings.Replace(token, core, strings.ToLower(core), 1)
	}
	return token
}

func isAllCapsWord(w string) bool {
	return isAlpha(w) && strings.ToUpper(w) == w && utf8.RuneCountInString(w) >= 2
}

func isAlpha(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func upperFirstLetter(s string) string {
	return mapFirstLetter(s, unicode.ToUpper)
}

func lowerFirstLetter(s string) string {
	return mapFirstLetter(s, unicode.ToLower)
}

func mapFirstLetter(s string, fn func(rune) rune) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return s[:i] + string(fn(r)) + s[i+utf8.RuneLen(r):]
		}
	}
	return s
}
