package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"nomenpairs/internal"
	"nomenpairs/internal/config"
	"nomenpairs/internal/logger"
	"nomenpairs/internal/morph"
	"nomenpairs/internal/normalize"
	"nomenpairs/internal/pipeline"
	"nomenpairs/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Validate())

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	must(err)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "pairs:etl":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		chunk := fs.Int("chunk", cfg.ChunkSize, "rows per chunk")
		workers := fs.Int("workers", cfg.Workers, "transform workers per chunk")
		resume := fs.Bool("resume", false, "continue after the last committed chunk")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg, log)
		defer db.Close()

		svc := pipeline.NewETLService(db, newNormalizer(ctx, cfg, log), cfg, log)
		summary, err := svc.Run(ctx, pipeline.ETLOptions{ChunkSize: *chunk, Workers: *workers, Resume: *resume})
		fmt.Printf("etl %s run=%s chunks=%d rows=%d upserted=%d empty_names=%d last_root_id=%d time=%.1fs\n",
			summary.Status, summary.RunID, summary.Chunks, summary.Processed, summary.Upserted,
			summary.EmptyNames, summary.LastRootID, summary.Elapsed.Seconds())
		if errors.Is(err, pipeline.ErrStopped) {
			fmt.Println("stopped between chunks; rerun with --resume to continue")
		}
		if etlExitCode(err) != 0 {
			must(err)
		}
	case "pairs:normalize":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "text to normalize; stdin lines when empty")
		_ = fs.Parse(os.Args[2:])

		n := newNormalizer(ctx, cfg, log)
		if strings.TrimSpace(*text) != "" {
			printPair(n.Pair(ctx, internal.SourceRecord{ItemName: *text}))
			return
		}
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			printPair(n.Pair(ctx, internal.SourceRecord{ItemName: scanner.Text()}))
		}
		must(scanner.Err())
	case "pairs:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "pairs.xlsx"), "output xlsx path")
		limit := fs.Int("limit", 0, "max rows, 0 for all")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg, log)
		defer db.Close()

		pairs, err := db.ListPairs(ctx, cfg.DestTable, *limit)
		must(err)
		if len(pairs) == 0 {
			must(fmt.Errorf("no rows in %s", cfg.DestTable))
		}
		must(pipeline.ExportPairsToXLSX(pairs, *out))
		fmt.Printf("exported %d rows to %s\n", len(pairs), *out)
	case "pairs:runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg, log)
		defer db.Close()

		runs, err := db.ListRuns(ctx, *limit)
		must(err)
		for _, r := range runs {
			line := fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s", r.ID, r.CreatedAt, r.RunID, r.Status, r.CountsJSON, r.TimingJSON)
			if r.Error != "" {
				line += "\terror=" + r.Error
			}
			fmt.Println(line)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config, log *logger.Logger) *storage.DB {
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	must(err)
	log.Info("db opened", "driver", cfg.DBDriver, "dsn", cfg.DBDSN)
	return db
}

// newNormalizer degrades to rule-only normalization when the morphology
// provider cannot be opened.
func newNormalizer(ctx context.Context, cfg config.Config, log *logger.Logger) *normalize.Normalizer {
	openCtx, cancel := context.WithTimeout(ctx, cfg.MorphTimeout+5*time.Second)
	defer cancel()

	analyzer, err := morph.Open(openCtx, morph.Options{
		Provider:    cfg.MorphProvider,
		LexiconPath: cfg.MorphLexiconPath,
		URL:         cfg.MorphURL,
		Timeout:     cfg.MorphTimeout,
		RateLimit:   cfg.MorphRateLimit,
		Retries:     cfg.MorphRetries,
		Cache:       cfg.MorphCache,
	})
	switch {
	case err != nil:
		log.Warn("morphology not available, reorder disabled", "provider", cfg.MorphProvider, "error", err)
		analyzer = nil
	case analyzer == nil:
		log.Info("morphology disabled", "provider", cfg.MorphProvider)
	default:
		log.Info("morphology ready", "provider", cfg.MorphProvider)
	}

	return normalize.New(normalize.Options{
		Analyzer:      analyzer,
		Abbreviations: cfg.ProtectedAbbreviations,
		Lookahead:     cfg.ReorderLookahead,
		Logger:        log,
	})
}

// etlExitCode is non-zero only for fatal runs. A stop at a chunk boundary
// leaves every committed chunk consistent and exits 0.
func etlExitCode(err error) int {
	if err == nil || errors.Is(err, pipeline.ErrStopped) {
		return 0
	}
	return 1
}

func printPair(p internal.NormalizedPair) {
	fmt.Printf("%s\t%s\n", p.NameFull, p.NameShort)
}

func usage() {
	fmt.Println("usage: nomenpairs <command>")
	fmt.Println("commands:")
	fmt.Println("  pairs:etl [--chunk=50000] [--workers=1] [--resume]")
	fmt.Println("  pairs:normalize [--text=\"...\"]   (reads stdin lines without --text)")
	fmt.Println("  pairs:export [--out=./out/pairs.xlsx] [--limit=0]")
	fmt.Println("  pairs:runs [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
