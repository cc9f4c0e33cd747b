package writer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO (grounded on internal/storage/sqlite)

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS report_items (
    reporter_name     TEXT NOT NULL,
    id                TEXT NOT NULL,
    parent_id         TEXT NOT NULL,
    method_name       TEXT NOT NULL,
    full_name         TEXT NOT NULL,
    start_time        INTEGER NOT NULL,
    end_time          INTEGER NOT NULL,
    duration_ns       INTEGER NOT NULL,
    relationship_kind TEXT NOT NULL,
    parameters        TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (reporter_name, id)
);

CREATE INDEX IF NOT EXISTS report_items_reporter_start_idx ON report_items(reporter_name, start_time);

CREATE TABLE IF NOT EXISTS report_summaries (
    reporter_name TEXT NOT NULL,
    sequence      INTEGER,
    kind          TEXT NOT NULL,
    line          TEXT NOT NULL,
    PRIMARY KEY (reporter_name, sequence)
);
`

// SQLiteWriter is the embedded, CGO-free analogue of PostgresWriter for
// single-node hosts: one .db file per host, WAL mode for concurrent
// reads during writes (§4.7, the "lite profile" durable writer).
type SQLiteWriter struct {
	db  *sql.DB
	log *slog.Logger

	mu           sync.Mutex
	reporterName string
	limit        reporter.LimitOptions
	rows         []report.Item
	summaryLines []struct{ kind, line string }
	summarySeq   int
}

// OpenSQLiteWriter opens (creating if absent) the database file at path
// in WAL mode and initializes the schema. Parent directories are created
// with 0700; the file itself is left at the driver's default mode.
func OpenSQLiteWriter(ctx context.Context, path string, logger *slog.Logger) (*SQLiteWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("writer: sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("writer: creating sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("writer: opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("writer: pinging sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("writer: initializing sqlite schema: %w", err)
	}

	return &SQLiteWriter{db: db, log: logger.With("component", "sqlite_writer", "path", path)}, nil
}

func (w *SQLiteWriter) SetParameters(p reporter.Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limit = p.Limit
	return nil
}

func (w *SQLiteWriter) Initialize(reporterName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reporterName = reporterName
	return nil
}

func (w *SQLiteWriter) WriteStart(report.Item) error { return nil }

func (w *SQLiteWriter) WriteItem(item report.Item) error {
	w.mu.Lock()
	w.rows = append(w.rows, item)
	w.rows = applyLimit(w.rows, w.limit)
	w.mu.Unlock()
	return nil
}

func (w *SQLiteWriter) WriteSummary(line string) error {
	w.mu.Lock()
	w.summaryLines = append(w.summaryLines, struct{ kind, line string }{"summary", line})
	w.mu.Unlock()
	return nil
}

func (w *SQLiteWriter) WriteError(err error) error {
	w.mu.Lock()
	w.summaryLines = append(w.summaryLines, struct{ kind, line string }{"error", err.Error()})
	w.mu.Unlock()
	return nil
}

func (w *SQLiteWriter) SetLimitOptions(l reporter.LimitOptions) {
	w.mu.Lock()
	w.limit = l
	w.rows = applyLimit(w.rows, l)
	w.mu.Unlock()
}

func (w *SQLiteWriter) GetLimitOptions() reporter.LimitOptions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	reporterName := w.reporterName
	rows := append([]report.Item{}, w.rows...)
	lines := append([]struct{ kind, line string }{}, w.summaryLines...)
	w.summaryLines = nil
	seqStart := w.summarySeq
	w.summarySeq += len(lines)
	w.mu.Unlock()

	ctx := context.Background()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writer: beginning sqlite flush: %w", err)
	}
	defer tx.Rollback()

	for _, item := range rows {
		params, err := marshalParameters(item)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_items
				(reporter_name, id, parent_id, method_name, full_name, start_time, end_time, duration_ns, relationship_kind, parameters)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(reporter_name, id) DO UPDATE SET
				parent_id = excluded.parent_id,
				end_time = excluded.end_time,
				duration_ns = excluded.duration_ns,
				parameters = excluded.parameters`,
			reporterName, item.Id, item.ParentId, item.MethodName, item.FullName,
			item.StartTime.UnixNano(), item.EndTime.UnixNano(), item.Duration.Nanoseconds(),
			string(item.Relationship()), string(params))
		if err != nil {
			return fmt.Errorf("writer: upserting report item %s: %w", item.Id, err)
		}
	}
	for i, l := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_summaries (reporter_name, sequence, kind, line) VALUES (?, ?, ?, ?)`,
			reporterName, seqStart+i, l.kind, l.line); err != nil {
			return fmt.Errorf("writer: inserting summary line: %w", err)
		}
	}
	return tx.Commit()
}

func (w *SQLiteWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.db.Close()
}
