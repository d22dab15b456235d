package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DimensionSeparator joins the numbers of a dimension, as in 34×34.
const DimensionSeparator = "×"

var (
	reLineBreaks      = regexp.MustCompile(`\r\n|\r|\n`)
	reSpaces          = regexp.MustCompile(`[ \t\x{00A0}]+`)
	reServiceCode     = regexp.MustCompile(`(?i)_\s*[хx]?\s*\d+[a-z]+\s*_`)
	reTrailingPunct   = regexp.MustCompile(`[ \t\x{00A0}]*[.!,;:…]+[ \t\x{00A0}]*$`)
	reTrailingJunk    = regexp.MustCompile(`[ _\-–—]+$`)

	charReplacer = strings.NewReplacer(
		"«", "''", "»", "''",
		"“", "''", "”", "''",
		"„", "''", "‟", "''",
		"‘", "''", "’", "''",
		"‚", "''", "‛", "''",
		"Ё", "Е", "ё", "е",
	)
)

// Clean applies the lexical rewrite rules in a fixed order. It never fails;
// empty input yields an empty string.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	s := reLineBreaks.ReplaceAllString(text, " ")
	s = collapseSpaces(s)

	s = charReplacer.Replace(norm.NFC.String(s))

	s = reServiceCode.ReplaceAllString(s, " ")
	s = collapseSpaces(s)

	s = joinDimensions(s)

	s = strings.TrimSpace(reTrailingPunct.ReplaceAllString(s, ""))
	s = strings.TrimSpace(reTrailingJunk.ReplaceAllString(s, ""))
	return s
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// joinDimensions rewrites a separator standing strictly between two digits
// (2 x 3, 2*3, 2 × 3, Cyrillic х) to DimensionSeparator with no spaces. Digits
// are never consumed, so every link of a chain like 2 x 3 x 4 is rewritten.
func joinDimensions(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); i++ {
		if i > 0 && isDigit(rs[i-1]) {
			if next, ok := dimensionSeparatorEnd(rs, i); ok {
				b.WriteString(DimensionSeparator)
				i = next - 1
				continue
			}
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}

// dimensionSeparatorEnd reports the index of the digit that follows a
// separator starting at i, allowing spaces on either side.
func dimensionSeparatorEnd(rs []rune, i int) (int, bool) {
	k := skipSpaces(rs, i)
	if k >= len(rs) || !isDimensionSeparator(rs[k]) {
		return 0, false
	}
	k = skipSpaces(rs, k+1)
	if k >= len(rs) || !isDigit(rs[k]) {
		return 0, false
	}
	return k, true
}

func skipSpaces(rs []rune, i int) int {
	for i < len(rs) && (rs[i] == ' ' || rs[i] == '\t' || rs[i] == '\u00A0') {
		i++
	}
	return i
}

func isDimensionSeparator(r rune) bool {
	switch r {
	case '*', '×', 'x', 'X', 'х', 'Х':
		return true
	}
	return false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
