//go:build integration

package writer

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/vitaliisemenov/methodtrace/internal/reporter"
)

// TestPostgresWriterRoundTripsItemsAndSummaries spins up a real Postgres
// container, runs the embedded goose migrations, and exercises
// WriteItem/WriteSummary/Flush end to end. Requires Docker; run with
// `go test -tags=integration ./internal/writer/...`.
func TestPostgresWriterRoundTripsItemsAndSummaries(t *testing.T) {
	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("methodtrace"),
		postgres.WithUsername("methodtrace"),
		postgres.WithPassword("methodtrace"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	w := NewPostgresWriter(pool, nil)
	require.NoError(t, w.SetParameters(reporter.Params{}))
	require.NoError(t, w.Initialize("demo"))

	start := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, w.WriteItem(itemWithParam("1", "", "Root", "k", "v", start)))
	require.NoError(t, w.WriteSummary("TotalDuration: 1ms"))
	require.NoError(t, w.Close())

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM report_items WHERE reporter_name = 'demo'`).Scan(&count))
	require.Equal(t, 1, count)

	var line string
	require.NoError(t, pool.QueryRow(ctx, `SELECT line FROM report_summaries WHERE reporter_name = 'demo'`).Scan(&line))
	require.Equal(t, "TotalDuration: 1ms", line)
}
