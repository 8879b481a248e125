package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/ports"
)

// RedisConfig locates the Redis server alerts are published to.
type RedisConfig struct {
	URL          string
	Channel      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Publisher publishes alerts as JSON on a Redis pub/sub channel.
type Publisher struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ ports.Notifier = (*Publisher)(nil)

// NewPublisher wires a client; channel defaults to "catalogsync.alerts".
func NewPublisher(client redis.UniversalClient, channel string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = "catalogsync.alerts"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, channel: channel, logger: logger.With("component", "redis_alerts")}
}

// Emit publishes n. Failures are logged.
func (p *Publisher) Emit(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		p.logger.Warn("marshal alert", "type", n.Type, "error", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("publish alert", "type", n.Type, "channel", p.channel, "error", err)
	}
}
