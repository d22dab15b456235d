package morph

import (
	"context"
	"sync"
	"time"
)

type timeoutAnalyzer struct {
	next    Analyzer
	timeout time.Duration
}

// WithTimeout bounds every call to next. A call that exceeds the timeout
// returns context.DeadlineExceeded and callers fall back to the original word.
func WithTimeout(next Analyzer, timeout time.Duration) Analyzer {
	if next == nil || timeout <= 0 {
		return next
	}
	return &timeoutAnalyzer{next: next, timeout: timeout}
}

func (a *timeoutAnalyzer) Analyze(ctx context.Context, word string) (Tag, error) {
	type result struct {
		tag Tag
		err error
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		tag, err := a.next.Analyze(ctx, word)
		done <- result{tag, err}
	}()
	select {
	case r := <-done:
		return r.tag, r.err
	case <-ctx.Done():
		return Tag{}, ctx.Err()
	}
}

func (a *timeoutAnalyzer) Inflect(ctx context.Context, word string, f Features) (string, bool, error) {
	type result struct {
		form string
		ok   bool
		err  error
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		form, ok, err := a.next.Inflect(ctx, word, f)
		done <- result{form, ok, err}
	}()
	select {
	case r := <-done:
		return r.form, r.ok, r.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

type cachedAnalyzer struct {
	next Analyzer
	tags sync.Map
}

// WithCache memoizes successful Analyze results. Failed lookups are not
// cached so a transient error does not stick for the whole run.
func WithCache(next Analyzer) Analyzer {
	if next == nil {
		return nil
	}
	return &cachedAnalyzer{next: next}
}

func (a *cachedAnalyzer) Analyze(ctx context.Context, word string) (Tag, error) {
	if v, ok := a.tags.Load(word); ok {
		return v.(Tag), nil
	}
	tag, err := a.next.Analyze(ctx, word)
	if err != nil {
		return tag, err
	}
	a.tags.Store(word, tag)
	return tag, nil
}

func (a *cachedAnalyzer) Inflect(ctx context.Context, word string, f Features) (string, bool, error) {
	return a.next.Inflect(ctx, word, f)
}
