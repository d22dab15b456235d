package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nomenpairs/internal"
	"nomenpairs/internal/config"
	"nomenpairs/internal/logger"
	"nomenpairs/internal/normalize"
	"nomenpairs/internal/storage"
)

const (
	StatusDone    = "done"
	StatusStopped = "stopped"
	StatusFailed  = "failed"
)

type ETLService struct {
	db         *storage.DB
	normalizer *normalize.Normalizer
	cfg        config.Config
	log        *logger.Logger
}

func NewETLService(db *storage.DB, normalizer *normalize.Normalizer, cfg config.Config, log *logger.Logger) *ETLService {
	if log == nil {
		log = logger.Nop()
	}
	return &ETLService{db: db, normalizer: normalizer, cfg: cfg, log: log}
}

type ETLOptions struct {
	// ChunkSize and Workers override the configured values when positive.
	ChunkSize int
	Workers   int
	// Resume starts after the last committed chunk of an unfinished run.
	Resume bool
}

type etlTimings struct {
	fetch, transform, upsert time.Duration
}

// CheckpointKey is the metadata key holding the last committed root_id for a
// destination table.
func CheckpointKey(destTable string) string {
	return "etl.checkpoint." + destTable
}

// Run streams the source relation into the destination table chunk by chunk.
// Cancelling ctx stops the run at the next chunk boundary; the chunk in flight
// is always finished and committed.
func (s *ETLService) Run(ctx context.Context, opts ETLOptions) (internal.RunSummary, error) {
	chunkSize := firstPositive(opts.ChunkSize, s.cfg.ChunkSize, 50000)
	workers := firstPositive(opts.Workers, s.cfg.Workers, 1)

	summary := internal.RunSummary{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := s.log.With("run_id", summary.RunID)
	work := context.WithoutCancel(ctx)
	var timings etlTimings

	log.Info("etl started",
		"source", s.cfg.SourceRelation,
		"dest", s.cfg.DestTable,
		"chunk_size", chunkSize,
		"workers", workers,
		"resume", opts.Resume,
	)

	runErr := s.run(ctx, work, log, chunkSize, workers, opts.Resume, &summary, &timings)

	summary.Elapsed = time.Since(summary.StartedAt)
	switch {
	case runErr == nil:
		summary.Status = StatusDone
	case errors.Is(runErr, ErrStopped):
		summary.Status = StatusStopped
	default:
		summary.Status = StatusFailed
	}
	if runErr != nil {
		summary.ErrorMessage = runErr.Error()
	}

	if err := s.recordRun(work, summary, timings); err != nil {
		log.Warn("run journal write failed", "error", err)
	}

	fields := []any{
		"status", summary.Status,
		"chunks", summary.Chunks,
		"rows", summary.Processed,
		"upserted", summary.Upserted,
		"empty_names", summary.EmptyNames,
		"elapsed", summary.Elapsed.Round(100 * time.Millisecond).String(),
	}
	if runErr != nil && summary.Status == StatusFailed {
		log.Error("etl failed", append(fields, "error", runErr)...)
	} else {
		log.Info("etl finished", fields...)
	}
	return summary, runErr
}

func (s *ETLService) run(ctx, work context.Context, log *logger.Logger, chunkSize, workers int, resume bool, summary *internal.RunSummary, timings *etlTimings) error {
	dest := s.cfg.DestTable
	if err := s.db.EnsureDestination(work, dest); err != nil {
		return errors.Join(ErrDestinationConstraint, fmt.Errorf("ensure %s: %w", dest, err))
	}

	key := CheckpointKey(dest)
	var after *int64
	if resume {
		cp, err := s.loadCheckpoint(work, key)
		if err != nil {
			return err
		}
		if cp != nil {
			after = cp
			summary.LastRootID = *cp
			log.Info("resuming after checkpoint", "last_root_id", *cp)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w after %d chunks: %w", ErrStopped, summary.Chunks, err)
		}
		chunkIdx := summary.Chunks + 1
		chunkStart := time.Now()

		records, err := s.db.FetchChunk(work, s.cfg.SourceRelation, after, chunkSize)
		if err != nil {
			return errors.Join(ErrSourceRead, fmt.Errorf("chunk %d: %w", chunkIdx, err))
		}
		timings.fetch += time.Since(chunkStart)
		if len(records) == 0 {
			break
		}
		log.Debug("chunk loaded", "chunk", chunkIdx, "loaded", len(records))

		t := time.Now()
		pairs, err := s.transform(work, records, workers)
		if err != nil {
			return fmt.Errorf("transform chunk %d: %w", chunkIdx, err)
		}
		timings.transform += time.Since(t)

		empty := 0
		for _, p := range pairs {
			if p.NameFull == "" {
				empty++
			}
		}

		last := records[len(records)-1].RootID
		t = time.Now()
		upserted, err := s.db.UpsertChunk(work, dest, pairs, s.cfg.StageBatch, &storage.Checkpoint{
			Key:   key,
			Value: strconv.FormatInt(last, 10),
		})
		if err != nil {
			return errors.Join(ErrChunkCommit, fmt.Errorf("chunk %d: %w", chunkIdx, err))
		}
		timings.upsert += time.Since(t)

		summary.Chunks = chunkIdx
		summary.Processed += len(records)
		summary.Upserted += int(upserted)
		summary.EmptyNames += empty
		summary.LastRootID = last
		after = &last

		log.Info("chunk committed",
			"chunk", chunkIdx,
			"loaded", len(records),
			"upserted", upserted,
			"empty_names", empty,
			"last_root_id", last,
			"elapsed", time.Since(chunkStart).Round(time.Millisecond).String(),
		)

		if len(records) < chunkSize {
			break
		}
	}

	if err := s.db.DeleteMetadata(work, key); err != nil {
		log.Warn("checkpoint clear failed", "key", key, "error", err)
	}
	return nil
}

// transform normalizes records into pairs, keeping input order. With more
// than one worker the records are split into contiguous ranges.
func (s *ETLService) transform(ctx context.Context, records []internal.SourceRecord, workers int) ([]internal.NormalizedPair, error) {
	pairs := make([]internal.NormalizedPair, len(records))
	if workers <= 1 || len(records) < 2 {
		for i, rec := range records {
			pairs[i] = s.normalizer.Pair(ctx, rec)
		}
		return pairs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	step := (len(records) + workers - 1) / workers
	for lo := 0; lo < len(records); lo += step {
		hi := min(lo+step, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				pairs[i] = s.normalizer.Pair(gctx, records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *ETLService) loadCheckpoint(ctx context.Context, key string) (*int64, error) {
	raw, err := s.db.GetMetadata(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint %q: %w", *raw, err)
	}
	return &v, nil
}

func (s *ETLService) recordRun(ctx context.Context, summary internal.RunSummary, t etlTimings) error {
	timings := map[string]float64{
		"totalMs":     float64(summary.Elapsed.Milliseconds()),
		"fetchMs":     float64(t.fetch.Milliseconds()),
		"transformMs": float64(t.transform.Milliseconds()),
		"upsertMs":    float64(t.upsert.Milliseconds()),
	}
	counts := map[string]int64{
		"chunks":     int64(summary.Chunks),
		"processed":  int64(summary.Processed),
		"upserted":   int64(summary.Upserted),
		"emptyNames": int64(summary.EmptyNames),
		"lastRootId": summary.LastRootID,
	}
	return s.db.InsertRun(ctx, summary.RunID, summary.Status, summary.ErrorMessage, timings, counts)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
