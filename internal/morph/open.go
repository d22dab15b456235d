package morph

import (
	"context"
	"fmt"
	"time"
)

type Options struct {
	Provider    string
	LexiconPath string
	URL         string
	Timeout     time.Duration
	RateLimit   int
	Retries     int
	Cache       bool
}

// Open builds the configured analyzer chain. Provider "none" yields a nil
// Analyzer and a nil error. Any construction failure is wrapped in
// ErrUnavailable.
func Open(ctx context.Context, opts Options) (Analyzer, error) {
	var base Analyzer
	switch opts.Provider {
	case "none", "":
		return nil, nil
	case "lexicon":
		lex, err := LoadLexicon(opts.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		base = lex
	case "http":
		client := NewClient(opts.URL, opts.Timeout, opts.RateLimit, opts.Retries)
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		base = client
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrUnavailable, opts.Provider)
	}

	a := WithTimeout(base, opts.Timeout)
	if opts.Cache {
		a = WithCache(a)
	}
	return a, nil
}
