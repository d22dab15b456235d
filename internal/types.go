package internal

import "time"

// ShortNameLimit is the maximum length, in characters, of NormalizedPair.NameShort.
const ShortNameLimit = 150

// SourceRecord is one pre-aggregated duplicate-root group read from the source relation.
type SourceRecord struct {
	RootID   int64
	ItemName string
	TypeMark string
}

type NormalizedPair struct {
	RootID    int64
	NameFull  string
	NameShort string
}

type RunSummary struct {
	RunID        string
	Status       string
	Chunks       int
	Processed    int
	Upserted     int
	EmptyNames   int
	LastRootID   int64
	Elapsed      time.Duration
	StartedAt    time.Time
	ErrorMessage string
}

type RunRow struct {
	ID         int
	RunID      string
	Status     string
	CountsJSON string
	TimingJSON string
	Error      string
	CreatedAt  string
}
