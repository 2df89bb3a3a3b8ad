package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/vocespace/spacekeeper/internal/config"
)

const pingTimeout = 3 * time.Second

// NewClient builds the space store client. It does not dial; go-redis
// connects lazily and redials on its own after an outage.
func NewClient(cfg *config.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	if cfg.Redis.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// Ping reports whether the store answers right now. Connection failures
// come back as ErrStoreUnavailable.
func Ping(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return classify(rdb.Ping(ctx).Err())
}

// RegisterOpenTelemetryPlugin adds tracing and pool metrics to rdb.
// Call it after telemetry.Setup so the global providers are set.
func RegisterOpenTelemetryPlugin(rdb *redis.Client) error {
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return fmt.Errorf("redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		return fmt.Errorf("redis metrics: %w", err)
	}
	return nil
}

func Close(rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
