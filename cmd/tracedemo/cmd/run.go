package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/methodtrace/cmd/tracedemo/config"
	"github.com/vitaliisemenov/methodtrace/cmd/tracedemo/demo"
	"github.com/vitaliisemenov/methodtrace/cmd/tracedemo/livewriter"
	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	mtcontext "github.com/vitaliisemenov/methodtrace/internal/context"
	"github.com/vitaliisemenov/methodtrace/internal/monitor"
	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
	"github.com/vitaliisemenov/methodtrace/internal/writer"
	"github.com/vitaliisemenov/methodtrace/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo workload, live endpoint, and durable writers",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Filename:   cfg.Logging.Filename,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}).With("component", "tracedemo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := callrecord.NewPool(0)
	stack := callstack.New(pool)
	controller := monitor.NewController(monitor.WithLogger(log))
	controller.Enable()
	controller.EnableReporter(monitor.ComponentKey(cfg.Workload.ReporterID))

	cm := mtcontext.NewClassMonitor(controller, stack, pool, nil, nil)

	rep := reporter.New(cfg.Workload.ReporterID, "tracedemo.Workload", "tracedemo-run", reporter.WithLogger(log))

	fs := vfs.NewOSFS()
	archiver := writer.NewArchiver(fs, nil)

	if err := rep.AddOutput(writer.NewCSVWriter(fs, archiver), reporter.Params{
		OutputDirectory: cfg.Storage.OutputDirectory,
	}); err != nil {
		return err
	}
	if err := rep.AddOutput(writer.NewRanttWriter(fs, archiver), reporter.Params{
		OutputDirectory: cfg.Storage.OutputDirectory,
	}); err != nil {
		return err
	}
	if err := rep.AddOutput(writer.NewTxtWriter(fs, archiver), reporter.Params{
		OutputDirectory: cfg.Storage.OutputDirectory,
	}); err != nil {
		return err
	}

	if cfg.Storage.Postgres.DSN != "" {
		if err := writer.Migrate(ctx, cfg.Storage.Postgres.DSN); err != nil {
			return err
		}
		pgPool, err := pgxpool.New(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		if err := rep.AddOutput(writer.NewPostgresWriter(pgPool, log), reporter.Params{}); err != nil {
			return err
		}
	}
	if cfg.Storage.SQLite.Path != "" {
		sqliteWriter, err := writer.OpenSQLiteWriter(ctx, cfg.Storage.SQLite.Path, log)
		if err != nil {
			return err
		}
		defer sqliteWriter.Close()
		if err := rep.AddOutput(sqliteWriter, reporter.Params{}); err != nil {
			return err
		}
	}

	hub := livewriter.NewHub(cfg.Server.BroadcastRatePerS, cfg.Server.BroadcastBurst, cfg.Server.WriteTimeout, log)
	if err := rep.AddOutput(livewriter.NewWriter(hub), reporter.Params{}); err != nil {
		return err
	}
	go hub.Run(ctx)

	bootstrapRoot := &callrecord.CallRecord{Id: "bootstrap", MethodName: "HandleRequest", Parameters: callrecord.NewOrderedParams()}
	if err := rep.Initialize(bootstrapRoot); err != nil {
		return err
	}
	acq, err := rep.StartReporting(stack)
	if err != nil {
		return err
	}

	workload := demo.New(cm, cfg.Workload.Interval, cfg.Workload.MaxDepth, cfg.Workload.ReporterID, log)
	go workload.Run(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/ws/trace", hub.ServeHTTP)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("live endpoint listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("live endpoint failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return acq.Close()
}
