package livewriter

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/report"
)

func startTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(1000, 1000, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return hub, wsURL
}

func TestWriterWriteItemBroadcastsToConnectedClient(t *testing.T) {
	hub, wsURL := startTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub's register case a moment to process before publishing.
	time.Sleep(20 * time.Millisecond)

	w := NewWriter(hub)
	require.NoError(t, w.WriteItem(report.Item{Id: "1", MethodName: "Do"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "item", evt.Kind)
	require.Equal(t, "1", evt.Item.Id)
}

func TestWriterWriteSummaryAndErrorBroadcast(t *testing.T) {
	hub, wsURL := startTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	w := NewWriter(hub)
	require.NoError(t, w.WriteSummary("TotalDuration: 1ms"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "summary", evt.Kind)
	require.Equal(t, "TotalDuration: 1ms", evt.Line)
}

func TestPublishNeverBlocksUnderNearZeroRateLimit(t *testing.T) {
	hub := NewHub(0.001, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// publish() itself never blocks even with no clients registered and
	// a near-zero rate limit.
	w := NewWriter(hub)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.WriteItem(report.Item{Id: "x"}))
	}
}
