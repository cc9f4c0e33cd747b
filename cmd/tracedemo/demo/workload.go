// Package demo simulates a small traced call tree so tracedemo has
// something to stream and persist without a real instrumented host.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	mtcontext "github.com/vitaliisemenov/methodtrace/internal/context"
)

// Workload periodically runs a simulated root call ("HandleRequest")
// that nests a chain of maxDepth calls (Step1..StepN), all routed through
// monitor, exercising the same Start/SetParameter/Dispose contract a
// real intercepted host would use.
type Workload struct {
	monitor    *mtcontext.ClassMonitor
	interval   time.Duration
	maxDepth   int
	reporterID string
	logger     *slog.Logger
}

// New constructs a Workload driving calls through monitor.
func New(monitor *mtcontext.ClassMonitor, interval time.Duration, maxDepth int, reporterID string, logger *slog.Logger) *Workload {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Workload{
		monitor:    monitor,
		interval:   interval,
		maxDepth:   maxDepth,
		reporterID: reporterID,
		logger:     logger.With("component", "demo_workload"),
	}
}

// Run fires one simulated call tree every interval until ctx is
// canceled.
func (w *Workload) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var threadID int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threadID++
			w.runOnce(threadID)
		}
	}
}

func (w *Workload) runOnce(threadID int64) {
	ctx, err := w.monitor.Start(mtcontext.Config{
		MethodName: "HandleRequest",
		ThreadId:   threadID,
		Reporter:   w.reporterID,
	})
	if err != nil {
		w.logger.Error("starting root call", "error", err)
		return
	}
	defer ctx.Dispose()

	ctx.SetParameter("route", "/demo")
	w.callDepth(threadID, 1)
}

func (w *Workload) callDepth(threadID int64, depth int) {
	if depth > w.maxDepth {
		return
	}

	child, err := w.monitor.Start(mtcontext.Config{
		MethodName: fmt.Sprintf("Step%d", depth),
		ThreadId:   threadID,
		Reporter:   w.reporterID,
	})
	if err != nil {
		w.logger.Error("starting child call", "error", err, "depth", depth)
		return
	}
	defer child.Dispose()

	child.SetParameter("depth", fmt.Sprintf("%d", depth))
	time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)

	if rand.Intn(10) == 0 {
		child.LogException(fmt.Errorf("simulated failure at depth %d", depth))
	}

	w.callDepth(threadID, depth+1)
}
