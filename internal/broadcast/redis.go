// Package broadcast publishes Monitoring Controller version/state
// transitions to a Redis pub/sub channel so multiple host processes can
// observe one controller's gating decisions. Grounded on the teacher's
// internal/infrastructure/cache.RedisCache: same options-struct
// construction, ping-on-connect, structured logging, and JSON payloads.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/methodtrace/internal/monitor"
)

// Config mirrors the teacher's CacheConfig shape, narrowed to what a
// publisher-only client needs.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Config) withDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	cfg := *c
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &cfg
}

// VersionEvent is the wire payload published on every controller version
// bump (§4.3 VersionChanged).
type VersionEvent struct {
	OldTimestampMicros int64 `json:"old_timestamp_micros"`
	OldCounter         int64 `json:"old_counter"`
	NewTimestampMicros int64 `json:"new_timestamp_micros"`
	NewCounter         int64 `json:"new_counter"`
}

// StateEvent is the wire payload published on every flag flip (§4.3
// StateChanged).
type StateEvent struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Version struct {
		TimestampMicros int64 `json:"timestamp_micros"`
		Counter         int64 `json:"counter"`
	} `json:"version"`
}

// RedisVersionBroadcaster publishes a Controller's version and state
// callbacks to Redis pub/sub channels, so other host processes can
// mirror its gating decisions without sharing the Controller in memory.
type RedisVersionBroadcaster struct {
	client  *redis.Client
	logger  *slog.Logger
	channel string
}

// NewRedisVersionBroadcaster connects to Redis and verifies reachability
// with a bounded ping, matching NewRedisCache's connect-or-fail
// construction.
func NewRedisVersionBroadcaster(cfg *Config, channel string, logger *slog.Logger) (*RedisVersionBroadcaster, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "methodtrace:versions"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("broadcast: connecting to redis: %w", err)
	}

	logger.Info("connected to redis for version broadcast", "addr", cfg.Addr, "channel", channel)
	return &RedisVersionBroadcaster{
		client:  client,
		logger:  logger.With("component", "redis_version_broadcaster"),
		channel: channel,
	}, nil
}

// NewRedisVersionBroadcasterFromClient wraps an already-constructed
// client, for callers that share a connection pool across components.
func NewRedisVersionBroadcasterFromClient(client *redis.Client, channel string, logger *slog.Logger) *RedisVersionBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "methodtrace:versions"
	}
	return &RedisVersionBroadcaster{
		client:  client,
		logger:  logger.With("component", "redis_version_broadcaster"),
		channel: channel,
	}
}

// Attach registers this broadcaster's callbacks on c, so every version
// bump and state flip the controller produces is republished to Redis.
func (b *RedisVersionBroadcaster) Attach(c *monitor.Controller) {
	c.AddVersionChangedCallback(b.publishVersion)
	c.AddStateChangedCallback(b.publishState)
}

// publishVersion is a monitor.VersionChangedCallback.
func (b *RedisVersionBroadcaster) publishVersion(old, new_ monitor.Version) {
	evt := VersionEvent{
		OldTimestampMicros: old.TimestampMicros,
		OldCounter:         old.Counter,
		NewTimestampMicros: new_.TimestampMicros,
		NewCounter:         new_.Counter,
	}
	b.publish(b.channel+":version", evt)
}

// publishState is a monitor.StateChangedCallback.
func (b *RedisVersionBroadcaster) publishState(kind monitor.ComponentKind, name monitor.ComponentKey, enabled bool, newVersion monitor.Version) {
	var evt StateEvent
	evt.Kind = string(kind)
	evt.Name = string(name)
	evt.Enabled = enabled
	evt.Version.TimestampMicros = newVersion.TimestampMicros
	evt.Version.Counter = newVersion.Counter
	b.publish(b.channel+":state", evt)
}

func (b *RedisVersionBroadcaster) publish(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal broadcast payload", "channel", channel, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("failed to publish broadcast event", "channel", channel, "error", err)
	}
}

// Close releases the underlying Redis connection pool.
func (b *RedisVersionBroadcaster) Close() error {
	return b.client.Close()
}
