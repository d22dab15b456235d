package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"nomenpairs/internal"
)

type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Checkpoint is a metadata entry written in the same transaction as a chunk.
type Checkpoint struct {
	Key   string
	Value string
}

func Open(driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("empty database dsn")
	}

	if d.name == DriverSQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, err
	}

	if d.name == DriverSQLite {
		// Temp staging tables live on one connection.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
		if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
	} else if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Driver() string {
	return d.dialect.name
}

// Exec runs a statement outside the pipeline, for fixtures and maintenance.
func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.conn.ExecContext(ctx, d.dialect.rebind(query), args...)
	return err
}

func (d *DB) init() error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS runs (
  id %[1]s,
  runId TEXT NOT NULL,
  status TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT %[2]s
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT %[2]s
);
`, d.dialect.serialType, d.dialect.nowDefault)

	_, err := d.conn.Exec(schema)
	return err
}

// EnsureDestination creates the pairs table when absent and guarantees a
// unique index on root_id. It fails when existing rows violate uniqueness.
func (d *DB) EnsureDestination(ctx context.Context, table string) error {
	if err := checkIdentifier(table); err != nil {
		return err
	}
	ddl := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  root_id BIGINT NOT NULL,
  name_full TEXT NOT NULL DEFAULT '',
  name_short VARCHAR(%d) NOT NULL DEFAULT ''
)`, table, internal.ShortNameLimit),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (root_id)`, indexName(table), table),
	}
	for _, stmt := range ddl {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return d.verifyRootIndex(ctx, table)
}

// ErrIndexNotUnique means the root_id index exists under the expected name
// but cannot back ON CONFLICT(root_id).
var ErrIndexNotUnique = errors.New("root_id index is not a unique index on root_id")

type indexInfo struct {
	unique  bool
	partial bool
	columns []string
}

// verifyRootIndex checks the index found by name, since CREATE INDEX IF NOT
// EXISTS accepts any pre-existing index with that name.
func (d *DB) verifyRootIndex(ctx context.Context, table string) error {
	name := indexName(table)
	var (
		info  indexInfo
		found bool
		err   error
	)
	if d.dialect.name == DriverPostgres {
		info, found, err = d.postgresIndex(ctx, table, name)
	} else {
		info, found, err = d.sqliteIndex(ctx, table, name)
	}
	if err != nil {
		return fmt.Errorf("inspect index %s: %w", name, err)
	}
	if !found {
		return fmt.Errorf("%w: %s missing on %s", ErrIndexNotUnique, name, table)
	}
	if !info.unique || info.partial || len(info.columns) != 1 || info.columns[0] != "root_id" {
		return fmt.Errorf("%w: %s on %s (unique=%t partial=%t columns=%v)",
			ErrIndexNotUnique, name, table, info.unique, info.partial, info.columns)
	}
	return nil
}

func (d *DB) sqliteIndex(ctx context.Context, table, name string) (indexInfo, bool, error) {
	schema, tbl := splitTable(table)
	if schema == "" {
		schema = "main"
	}

	var info indexInfo
	var unique, partial int
	err := d.conn.QueryRowContext(ctx,
		`SELECT "unique", partial FROM pragma_index_list(?, ?) WHERE name = ?`, tbl, schema, name,
	).Scan(&unique, &partial)
	if errors.Is(err, sql.ErrNoRows) {
		return info, false, nil
	}
	if err != nil {
		return info, false, err
	}
	info.unique, info.partial = unique == 1, partial == 1

	rows, err := d.conn.QueryContext(ctx, `SELECT name FROM pragma_index_info(?, ?) ORDER BY seqno`, name, schema)
	if err != nil {
		return info, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var col sql.NullString
		if err := rows.Scan(&col); err != nil {
			return info, false, err
		}
		info.columns = append(info.columns, col.String)
	}
	return info, true, rows.Err()
}

func (d *DB) postgresIndex(ctx context.Context, table, name string) (indexInfo, bool, error) {
	rows, err := d.conn.QueryContext(ctx, d.dialect.rebind(`
SELECT ix.indisunique, ix.indpred IS NOT NULL, a.attname
FROM pg_index ix
JOIN pg_class c ON c.oid = ix.indexrelid
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
LEFT JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
WHERE ix.indrelid = ?::regclass AND c.relname = ?
ORDER BY k.ord`), table, name)
	if err != nil {
		return indexInfo{}, false, err
	}
	defer rows.Close()

	var info indexInfo
	found := false
	for rows.Next() {
		var col sql.NullString
		if err := rows.Scan(&info.unique, &info.partial, &col); err != nil {
			return info, false, err
		}
		found = true
		info.columns = append(info.columns, col.String)
	}
	return info, found, rows.Err()
}

// FetchChunk reads up to limit source rows ordered by root_id. A nil after
// starts from the beginning; otherwise only rows with root_id > *after are read.
// NULL item_name or type_mark read as empty strings.
func (d *DB) FetchChunk(ctx context.Context, relation string, after *int64, limit int) ([]internal.SourceRecord, error) {
	if err := checkIdentifier(relation); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid chunk limit %d", limit)
	}

	query := fmt.Sprintf(`
SELECT root_id, item_name, type_mark
FROM %s
WHERE root_id IS NOT NULL`, relation)
	args := []any{}
	if after != nil {
		query += ` AND root_id > ?`
		args = append(args, *after)
	}
	query += `
ORDER BY root_id
LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, d.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]internal.SourceRecord, 0, limit)
	for rows.Next() {
		var rec internal.SourceRecord
		var itemName, typeMark sql.NullString
		if err := rows.Scan(&rec.RootID, &itemName, &typeMark); err != nil {
			return nil, err
		}
		rec.ItemName = itemName.String
		rec.TypeMark = typeMark.String
		out = append(out, rec)
	}

	return out, rows.Err()
}

// UpsertChunk stages pairs in a temporary table and merges them into table in
// one transaction: conflicting root_ids get both names overwritten. When cp is
// set it is stored in the same transaction. The returned count is the number
// of destination rows the driver reports as inserted or updated.
func (d *DB) UpsertChunk(ctx context.Context, table string, pairs []internal.NormalizedPair, stageBatch int, cp *Checkpoint) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if stageBatch <= 0 {
		stageBatch = 1000
	}
	pairs = lastPerRoot(pairs)

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stage := "pairs_stage_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TEMP TABLE %s (
  root_id BIGINT,
  name_full TEXT,
  name_short TEXT
)`, stage)); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}

	for start := 0; start < len(pairs); start += stageBatch {
		end := min(start+stageBatch, len(pairs))
		batch := pairs[start:end]

		var b strings.Builder
		fmt.Fprintf(&b, `INSERT INTO %s (root_id, name_full, name_short) VALUES `, stage)
		args := make([]any, 0, len(batch)*3)
		for i, p := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, ?)")
			args = append(args, p.RootID, p.NameFull, p.NameShort)
		}
		if _, err := tx.ExecContext(ctx, d.dialect.rebind(b.String()), args...); err != nil {
			return 0, fmt.Errorf("stage rows: %w", err)
		}
	}

	// The WHERE clause also keeps SQLite from reading ON CONFLICT as a join constraint.
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (root_id, name_full, name_short)
SELECT root_id, name_full, name_short
FROM %s
WHERE root_id IS NOT NULL
ON CONFLICT(root_id) DO UPDATE SET
  name_full = excluded.name_full,
  name_short = excluded.name_short
`, table, stage))
	if err != nil {
		return 0, fmt.Errorf("merge staged rows: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = int64(len(pairs))
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, stage)); err != nil {
		return 0, fmt.Errorf("drop staging table: %w", err)
	}

	if cp != nil {
		if err := d.setMetadata(ctx, tx, cp.Key, cp.Value); err != nil {
			return 0, fmt.Errorf("write checkpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

// lastPerRoot drops earlier duplicates of a root_id within one batch, which a
// single ON CONFLICT statement cannot update twice.
func lastPerRoot(pairs []internal.NormalizedPair) []internal.NormalizedPair {
	seen := make(map[int64]int, len(pairs))
	dup := false
	for i, p := range pairs {
		if _, ok := seen[p.RootID]; ok {
			dup = true
		}
		seen[p.RootID] = i
	}
	if !dup {
		return pairs
	}
	out := make([]internal.NormalizedPair, 0, len(seen))
	for i, p := range pairs {
		if seen[p.RootID] == i {
			out = append(out, p)
		}
	}
	return out
}

func (d *DB) ListPairs(ctx context.Context, table string, limit int) ([]internal.NormalizedPair, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT root_id, name_full, name_short FROM %s ORDER BY root_id`, table)
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.conn.QueryContext(ctx, d.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.NormalizedPair
	for rows.Next() {
		var p internal.NormalizedPair
		if err := rows.Scan(&p.RootID, &p.NameFull, &p.NameShort); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetPair(ctx context.Context, table string, rootID int64) (*internal.NormalizedPair, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	var p internal.NormalizedPair
	err := d.conn.QueryRowContext(ctx, d.dialect.rebind(fmt.Sprintf(
		`SELECT root_id, name_full, name_short FROM %s WHERE root_id = ?`, table)), rootID,
	).Scan(&p.RootID, &p.NameFull, &p.NameShort)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) CountPairs(ctx context.Context, table string) (int, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	var n int
	err := d.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n)
	return n, err
}

func (d *DB) InsertRun(ctx context.Context, runID, status, errMsg string, timings map[string]float64, counts map[string]int64) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.ExecContext(ctx, d.dialect.rebind(
		`INSERT INTO runs (runId, status, timingsJson, countsJson, error) VALUES (?, ?, ?, ?, ?)`),
		runID, status, string(timingsJSON), string(countsJSON), errMsg)
	return err
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.QueryContext(ctx, d.dialect.rebind(`
SELECT id, runId, status, countsJson, timingsJson, error, createdAt
FROM runs
ORDER BY id DESC
LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var r internal.RunRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.Status, &r.CountsJSON, &r.TimingJSON, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *DB) setMetadata(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx, d.dialect.rebind(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = `+d.dialect.nowDefault), key, value)
	return err
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	return d.setMetadata(ctx, d.conn, key, value)
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, d.dialect.rebind(`SELECT value FROM metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) DeleteMetadata(ctx context.Context, key string) error {
	_, err := d.conn.ExecContext(ctx, d.dialect.rebind(`DELETE FROM metadata WHERE key = ?`), key)
	return err
}
