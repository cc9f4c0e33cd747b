package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/monitor"
)

func newTestBroadcaster(t *testing.T) (*RedisVersionBroadcaster, *redis.Client, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := NewRedisVersionBroadcasterFromClient(client, "test:versions", nil)
	return b, client, mr.Addr()
}

func TestNewRedisVersionBroadcasterConnectsAndPings(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisVersionBroadcaster(&Config{Addr: mr.Addr()}, "demo", nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NoError(t, b.Close())
}

func TestNewRedisVersionBroadcasterFailsOnUnreachableAddr(t *testing.T) {
	_, err := NewRedisVersionBroadcaster(&Config{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}, "demo", nil)
	require.Error(t, err)
}

func TestAttachPublishesVersionChangedEvents(t *testing.T) {
	b, client, _ := newTestBroadcaster(t)

	sub := client.Subscribe(t.Context(), "test:versions:version")
	defer sub.Close()
	_, err := sub.Receive(t.Context())
	require.NoError(t, err)

	c := monitor.NewController()
	b.Attach(c)
	c.Enable()

	msg, err := sub.ReceiveMessage(t.Context())
	require.NoError(t, err)

	var evt VersionEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
	require.True(t, evt.NewTimestampMicros > 0 || evt.NewCounter > 0)
}

func TestAttachPublishesStateChangedEvents(t *testing.T) {
	b, client, _ := newTestBroadcaster(t)

	sub := client.Subscribe(t.Context(), "test:versions:state")
	defer sub.Close()
	_, err := sub.Receive(t.Context())
	require.NoError(t, err)

	c := monitor.NewController()
	b.Attach(c)
	c.EnableReporter("csv")

	msg, err := sub.ReceiveMessage(t.Context())
	require.NoError(t, err)

	var evt StateEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
	require.Equal(t, "reporter", evt.Kind)
	require.Equal(t, "csv", evt.Name)
	require.True(t, evt.Enabled)
}
