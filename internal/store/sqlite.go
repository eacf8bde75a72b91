// Package store persists parsed records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyra/alogparse/internal/parser"
	"github.com/cyra/alogparse/internal/pipeline"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DefaultBatchSize is the number of records written per transaction.
const DefaultBatchSize = 500

// SQLite is a record sink backed by a SQLite database. Records are written
// in batches; Flush commits the pending batch. It is not safe for concurrent
// use.
type SQLite struct {
	db        *sql.DB
	tx        *sql.Tx
	pending   int
	batchSize int
}

// Open opens (and creates if missing) the database and applies migrations.
func Open(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "configure sqlite")
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &SQLite{db: db, batchSize: DefaultBatchSize}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            source TEXT NOT NULL,
            line INTEGER NOT NULL,
            ts_unix INTEGER,
            status TEXT,
            fields TEXT NOT NULL,
            field_errors TEXT,
            raw_line TEXT NOT NULL
        );`,
		`DROP INDEX IF EXISTS uq_records_line;`,
		// Standard input has no identity across runs, so only file lines
		// are deduplicated.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_records_file_line ON records(source, line, raw_line) WHERE source <> '-';`,
		`CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SetBatchSize changes how many records are written per transaction.
func (s *SQLite) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Name identifies the sink in metrics.
func (s *SQLite) Name() string { return "sqlite" }

// Write inserts rec. Re-importing the same line of the same file stores
// nothing and returns an error wrapping pipeline.ErrSkipped. Lines read from
// standard input are always stored.
func (s *SQLite) Write(rec *parser.Record) error {
	fields, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}

	var fieldErrors sql.NullString
	if len(rec.Errors) > 0 {
		m := make(map[string]string, len(rec.Errors))
		for _, fe := range rec.Errors {
			m[fe.Field] = fe.Err.Error()
		}
		b, err := json.Marshal(m)
		if err != nil {
			return errors.Wrap(err, "encode field errors")
		}
		fieldErrors = sql.NullString{String: string(b), Valid: true}
	}

	if s.tx == nil {
		if s.tx, err = s.db.Begin(); err != nil {
			return errors.Wrap(err, "begin")
		}
	}
	res, err := s.tx.Exec(`INSERT OR IGNORE INTO records
        (source, line, ts_unix, status, fields, field_errors, raw_line)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.Line, timestamp(rec), status(rec), string(fields), fieldErrors, rec.Raw)
	if err != nil {
		return errors.Wrapf(err, "insert %s:%d", rec.Source, rec.Line)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(pipeline.ErrSkipped, "%s:%d already stored", rec.Source, rec.Line)
	}

	s.pending++
	if s.pending >= s.batchSize {
		return s.Flush()
	}
	return nil
}

func timestamp(rec *parser.Record) sql.NullInt64 {
	v, ok := rec.Get(parser.TimeField)
	if !ok {
		return sql.NullInt64{}
	}
	t, ok := v.(time.Time)
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func status(rec *parser.Record) sql.NullString {
	v, ok := rec.Status()
	return sql.NullString{String: v, Valid: ok}
}

// Flush commits the pending batch.
func (s *SQLite) Flush() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	s.pending = 0
	return errors.Wrap(tx.Commit(), "commit")
}

// Count returns the number of stored records.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// StatusCounts returns the number of stored records per status code.
func (s *SQLite) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM records WHERE status IS NOT NULL GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

// Close commits pending records and closes the database.
func (s *SQLite) Close() error {
	ferr := s.Flush()
	if err := s.db.Close(); err != nil {
		return err
	}
	return ferr
}
