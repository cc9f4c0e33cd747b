package writer

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vitaliisemenov/methodtrace/internal/report"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration embedded in this package to the
// database reachable at dsn, using goose's postgres dialect (grounded on
// internal/infrastructure/migrations.MigrationManager.Up).
func Migrate(ctx context.Context, dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("writer: opening migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("writer: setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("writer: applying migrations: %w", err)
	}
	return nil
}

// PostgresWriter persists ReportItems to a `report_items` table for
// durable querying beyond the file-based CSV/Rantt/Txt writers. It
// satisfies the same Writer contract (§4.7) but ignores the
// vfs/overrides/archiving machinery the file writers share, since a SQL
// table has neither a header to stabilize nor a prior run to archive.
type PostgresWriter struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	mu           sync.Mutex
	reporterName string
	limit        reporter.LimitOptions
	rows         []report.Item
	summaryLines []struct{ kind, line string }
}

// NewPostgresWriter wraps an already-connected pool. Callers run Migrate
// once per database before constructing any writer against it.
func NewPostgresWriter(pool *pgxpool.Pool, logger *slog.Logger) *PostgresWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWriter{pool: pool, log: logger.With("component", "postgres_writer")}
}

func (w *PostgresWriter) SetParameters(p reporter.Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limit = p.Limit
	return nil
}

func (w *PostgresWriter) Initialize(reporterName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reporterName = reporterName
	return nil
}

func (w *PostgresWriter) WriteStart(report.Item) error { return nil }

func (w *PostgresWriter) WriteItem(item report.Item) error {
	w.mu.Lock()
	w.rows = append(w.rows, item)
	w.rows = applyLimit(w.rows, w.limit)
	w.mu.Unlock()
	return nil
}

func (w *PostgresWriter) WriteSummary(line string) error {
	w.mu.Lock()
	w.summaryLines = append(w.summaryLines, struct{ kind, line string }{"summary", line})
	w.mu.Unlock()
	return nil
}

func (w *PostgresWriter) WriteError(err error) error {
	w.mu.Lock()
	w.summaryLines = append(w.summaryLines, struct{ kind, line string }{"error", err.Error()})
	w.mu.Unlock()
	return nil
}

func (w *PostgresWriter) SetLimitOptions(l reporter.LimitOptions) {
	w.mu.Lock()
	w.limit = l
	w.rows = applyLimit(w.rows, l)
	w.mu.Unlock()
}

func (w *PostgresWriter) GetLimitOptions() reporter.LimitOptions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

// Flush upserts the buffered rows and appends any pending summary/error
// lines, all within one transaction.
func (w *PostgresWriter) Flush() error {
	w.mu.Lock()
	reporterName := w.reporterName
	rows := append([]report.Item{}, w.rows...)
	lines := append([]struct{ kind, line string }{}, w.summaryLines...)
	w.summaryLines = nil
	w.mu.Unlock()

	ctx := context.Background()
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("writer: beginning postgres flush: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range rows {
		params, err := marshalParameters(item)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO report_items
				(reporter_name, id, parent_id, method_name, full_name, start_time, end_time, duration_ns, relationship_kind, parameters)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (reporter_name, id) DO UPDATE SET
				parent_id = EXCLUDED.parent_id,
				end_time = EXCLUDED.end_time,
				duration_ns = EXCLUDED.duration_ns,
				parameters = EXCLUDED.parameters`,
			reporterName, item.Id, item.ParentId, item.MethodName, item.FullName,
			item.StartTime, item.EndTime, item.Duration.Nanoseconds(), string(item.Relationship()), params)
		if err != nil {
			return fmt.Errorf("writer: upserting report item %s: %w", item.Id, err)
		}
	}
	for _, l := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO report_summaries (reporter_name, kind, line) VALUES ($1, $2, $3)`,
			reporterName, l.kind, l.line); err != nil {
			return fmt.Errorf("writer: inserting summary line: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("writer: committing postgres flush: %w", err)
	}
	return nil
}

func (w *PostgresWriter) Close() error {
	return w.Flush()
}

func marshalParameters(item report.Item) ([]byte, error) {
	m := make(map[string]string)
	if item.Parameters != nil {
		for _, k := range item.Parameters.Keys() {
			v, _ := item.Parameters.Get(k)
			m[k] = v
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("writer: marshaling parameters for %s: %w", item.FullName, err)
	}
	return data, nil
}
