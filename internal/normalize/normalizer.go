// Package normalize turns raw catalog item text into a canonical display name.
package normalize

import (
	"context"
	"strings"
	"unicode/utf8"

	"nomenpairs/internal"
	"nomenpairs/internal/logger"
	"nomenpairs/internal/morph"
)

type Options struct {
	// Analyzer may be nil; reordering is then skipped.
	Analyzer      morph.Analyzer
	Abbreviations []string
	Lookahead     int
	Logger        *logger.Logger
}

// Normalizer is safe for concurrent use when its Analyzer is.
type Normalizer struct {
	abbr    Abbreviations
	reorder *Reorderer
}

func New(opts Options) *Normalizer {
	abbr := NewAbbreviations(opts.Abbreviations)
	return &Normalizer{
		abbr:    abbr,
		reorder: NewReorderer(opts.Analyzer, abbr, opts.Lookahead, opts.Logger),
	}
}

func (n *Normalizer) Normalize(raw string) string {
	return n.NormalizeContext(context.Background(), raw)
}

func (n *Normalizer) NormalizeContext(ctx context.Context, raw string) string {
	s := Clean(raw)
	if s == "" {
		return ""
	}

	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		tokens[i] = NormalizeTokenCase(tok, n.abbr)
	}
	tokens = n.reorder.Reorder(ctx, tokens)

	s = collapseSpaces(strings.Join(tokens, " "))
	if s == "" {
		return ""
	}
	return upperFirstLetter(s)
}

// Pair builds the destination row for one source record.
func (n *Normalizer) Pair(ctx context.Context, rec internal.SourceRecord) internal.NormalizedPair {
	full := n.NormalizeContext(ctx, RawFullName(rec.ItemName, rec.TypeMark))
	return internal.NormalizedPair{
		RootID:    rec.RootID,
		NameFull:  full,
		NameShort: Truncate(full, internal.ShortNameLimit),
	}
}

// RawFullName joins the item name and its type mark.
func RawFullName(itemName, typeMark string) string {
	return strings.TrimSpace(strings.TrimSpace(itemName) + " " + strings.TrimSpace(typeMark))
}

// Truncate keeps at most limit characters of s.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i, count := 0, 0
	for i = range s {
		if count == limit {
			break
		}
		count++
	}
	return s[:i]
}
