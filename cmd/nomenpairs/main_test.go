package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"nomenpairs/internal/pipeline"
)

func TestETLExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "done", err: nil, want: 0},
		{name: "stopped", err: fmt.Errorf("%w after 1 chunks: %w", pipeline.ErrStopped, context.Canceled), want: 0},
		{name: "destination", err: errors.Join(pipeline.ErrDestinationConstraint, errors.New("index")), want: 1},
		{name: "chunk commit", err: errors.Join(pipeline.ErrChunkCommit, errors.New("conn reset")), want: 1},
		{name: "source read", err: errors.Join(pipeline.ErrSourceRead, errors.New("no relation")), want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := etlExitCode(tc.err); got != tc.want {
				t.Fatalf("etlExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
