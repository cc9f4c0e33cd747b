package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/callstack"
	mtcontext "github.com/vitaliisemenov/methodtrace/internal/context"
	"github.com/vitaliisemenov/methodtrace/internal/monitor"
)

func TestRunOnceProducesNestedCallsThroughMaxDepth(t *testing.T) {
	pool := callrecord.NewPool(0)
	stack := callstack.New(pool)
	controller := monitor.NewController()
	controller.Enable()
	controller.EnableReporter("demo")
	cm := mtcontext.NewClassMonitor(controller, stack, pool, nil, nil)

	var starts []string
	stack.Subscribe(func(item callrecord.CallStackItem) {
		if item.Type == callrecord.ItemMethodCallStart {
			starts = append(starts, item.Record.MethodName)
		}
	})

	w := New(cm, time.Millisecond, 2, "demo", nil)
	w.runOnce(1)

	require.Contains(t, starts, "HandleRequest")
	require.Contains(t, starts, "Step1")
	require.Contains(t, starts, "Step2")
	require.NotContains(t, starts, "Step3")
}

func TestNewClampsMaxDepthToAtLeastOne(t *testing.T) {
	w := New(nil, time.Millisecond, 0, "demo", nil)
	require.Equal(t, 1, w.maxDepth)
}
