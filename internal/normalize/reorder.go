package normalize

import (
	"context"
	"regexp"
	"strings"

	"nomenpairs/internal/logger"
	"nomenpairs/internal/morph"
)

// DefaultLookahead is how many leading tokens are searched for the head noun.
const DefaultLookahead = 10

var reLetterWord = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё-]+$`)

// Reorderer moves an "adjective noun" pair to the front of a name as
// "noun adjective", agreeing the adjective with the noun:
//
//	Стальной болт М10 -> болт стальной М10
//
// Only the token immediately before the first noun is considered.
type Reorderer struct {
	analyzer  morph.Analyzer
	abbr      Abbreviations
	lookahead int
	log       *logger.Logger
}

func NewReorderer(analyzer morph.Analyzer, abbr Abbreviations, lookahead int, log *logger.Logger) *Reorderer {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reorderer{analyzer: analyzer, abbr: abbr, lookahead: lookahead, log: log}
}

// Reorder returns tokens unchanged when no analyzer is configured, there are
// fewer than two tokens, or no adjective-noun pair qualifies.
func (r *Reorderer) Reorder(ctx context.Context, tokens []string) []string {
	if r == nil || r.analyzer == nil || len(tokens) < 2 {
		return tokens
	}

	nounIdx := -1
	var nounTag morph.Tag
	for i := 1; i < min(r.lookahead, len(tokens)); i++ {
		w := StripEdges(tokens[i])
		if w == "" || r.abbr.Contains(w) || !reLetterWord.MatchString(w) {
			continue
		}
		tag, ok := r.analyze(ctx, w)
		if ok && tag.IsNoun() {
			nounIdx, nounTag = i, tag
			break
		}
	}
	if nounIdx < 0 {
		return tokens
	}

	adjTok, nounTok := tokens[nounIdx-1], tokens[nounIdx]
	adjWord, nounWord := StripEdges(adjTok), StripEdges(nounTok)
	if !isAlpha(adjWord) || !isAlpha(nounWord) {
		return tokens
	}
	adjTag, ok := r.analyze(ctx, adjWord)
	if !ok || !adjTag.IsAdjective() {
		return tokens
	}

	nounForm := r.inflect(ctx, nounWord, morph.Features{Number: morph.NumberSing, Case: morph.CaseNomn})
	adjForm := r.inflect(ctx, adjWord, morph.Features{Number: morph.NumberSing, Case: morph.CaseNomn, Gender: nounTag.Gender})

	out := make([]string, 0, len(tokens))
	out = append(out,
		strings.Replace(nounTok, nounWord, nounForm, 1),
		lowerFirstLetter(strings.Replace(adjTok, adjWord, adjForm, 1)),
	)
	out = append(out, tokens[:nounIdx-1]...)
	out = append(out, tokens[nounIdx+1:]...)
	return out
}

func (r *Reorderer) analyze(ctx context.Context, word string) (morph.Tag, bool) {
	tag, err := r.analyzer.Analyze(ctx, word)
	if err != nil {
		r.log.Debug("morph analyze failed", "word", word, "error", err)
		return morph.Tag{}, false
	}
	return tag, true
}

// inflect falls back to the original word when the form is unavailable.
func (r *Reorderer) inflect(ctx context.Context, word string, f morph.Features) string {
	form, ok, err := r.analyzer.Inflect(ctx, word, f)
	if err != nil {
		r.log.Debug("morph inflect failed", "word", word, "error", err)
		return word
	}
	if !ok || form == "" {
		return word
	}
	return form
}
