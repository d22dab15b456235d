package pipeline

import "errors"

var (
	// ErrDestinationConstraint means the destination table or its unique
	// root_id index could not be established. No chunk was processed.
	ErrDestinationConstraint = errors.New("destination uniqueness constraint unavailable")
	// ErrChunkCommit means a chunk failed to stage or merge. Earlier chunks
	// stay committed and the checkpoint points at the last of them.
	ErrChunkCommit = errors.New("chunk commit failed")
	ErrSourceRead  = errors.New("source read failed")
	// ErrStopped is returned when a stop request ended the run between chunks.
	ErrStopped = errors.New("etl stopped")
)
