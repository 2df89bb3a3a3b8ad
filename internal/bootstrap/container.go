package bootstrap

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/infra/blob"
	"github.com/vocespace/spacekeeper/internal/infra/cache"
	"github.com/vocespace/spacekeeper/internal/infra/logger"
	"github.com/vocespace/spacekeeper/internal/infra/notify"
	mq "github.com/vocespace/spacekeeper/internal/infra/queue"
	"github.com/vocespace/spacekeeper/internal/infra/rtc"
	"github.com/vocespace/spacekeeper/internal/modules/handler"
	"github.com/vocespace/spacekeeper/internal/modules/repo"
	"github.com/vocespace/spacekeeper/internal/modules/service"
	"github.com/vocespace/spacekeeper/internal/telemetry"
)

const defaultPresignExpire = 15 * time.Minute

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.App.Env == "dev" {
			return logger.NewDevelopment(cfg.Log.Level)
		}
		return logger.New(cfg.Log.Level)
	})

	// Redis. A failed ping is not fatal: the client redials on its own and
	// the KV reports StoreUnavailable until it succeeds.
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		rdb := cache.NewClient(cfg)
		if err := cache.Ping(context.Background(), rdb); err != nil {
			log.Error("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		if telemetry.Enabled(cfg) {
			if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
				log.Warn("redis otel plugin not registered", zap.Error(err))
			}
		}
		return rdb, nil
	})
	do.Provide(inj, func(i *do.Injector) (cache.KV, error) {
		return cache.NewKV(do.MustInvoke[*redis.Client](i)), nil
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		return mq.NewDialFunc(do.MustInvoke[*config.Config](i)), nil
	})

	// RabbitMQ Connection
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		dialFn := do.MustInvoke[mq.DialFunc](i)
		return dialFn()
	})

	// RabbitMQ Publisher / Subscriber
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		return mq.NewPublisher(
			do.MustInvoke[*amqp.Connection](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		)
	})
	do.Provide(inj, func(i *do.Injector) (*mq.Subscriber, error) {
		return mq.NewSubscriber(
			do.MustInvoke[*amqp.Connection](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*config.Config](i),
		)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})
	// get presign expire duration
	do.Provide(inj, func(i *do.Injector) (func() time.Duration, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return func() time.Duration {
			if cfg.S3.PresignExpireSec <= 0 {
				return defaultPresignExpire
			}
			return time.Duration(cfg.S3.PresignExpireSec) * time.Second
		}, nil
	})

	// event delivery
	do.Provide(inj, func(i *do.Injector) (*notify.Hub, error) {
		return notify.NewHub(do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*notify.Relay, error) {
		return notify.NewRelay(
			do.MustInvoke[*mq.Publisher](i),
			do.MustInvoke[*notify.Hub](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.Notifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.RabbitMQ.Enabled {
			return do.MustInvoke[*notify.Hub](i), nil
		}
		relay, err := do.Invoke[*notify.Relay](i)
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Error("rabbitmq unavailable, delivering events locally", zap.Error(err))
			return do.MustInvoke[*notify.Hub](i), nil
		}
		return relay, nil
	})

	// LiveKit
	do.Provide(inj, func(i *do.Injector) (service.SessionProvider, error) {
		return rtc.NewProvider(do.MustInvoke[*config.Config](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.Recorder, error) {
		return rtc.NewRecorder(do.MustInvoke[*config.Config](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (notify.Authenticator, error) {
		return rtc.NewTokenVerifier(do.MustInvoke[*config.Config](i)), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.SpaceRepo, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return repo.NewSpaceRepo(do.MustInvoke[cache.KV](i), cfg.Redis.KeyPrefix), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.SpaceService, error) {
		return service.NewSpaceService(
			do.MustInvoke[repo.SpaceRepo](i),
			do.MustInvoke[service.Notifier](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.RecordService, error) {
		log := do.MustInvoke[*zap.Logger](i)

		// keep the signer a nil interface when no bucket is configured
		var signer service.FileSigner
		s3, err := do.Invoke[*blob.S3Deps](i)
		switch {
		case err == nil:
			signer = s3
		case errors.Is(err, blob.ErrNotConfigured):
			log.Info("recording storage not configured, download urls disabled")
		default:
			return nil, err
		}

		return service.NewRecordService(
			do.MustInvoke[service.SpaceService](i),
			do.MustInvoke[service.Recorder](i),
			signer,
			do.MustInvoke[func() time.Duration](i),
			log,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.Reconciler, error) {
		return service.NewReconciler(
			do.MustInvoke[service.SessionProvider](i),
			do.MustInvoke[repo.SpaceRepo](i),
			do.MustInvoke[service.SpaceService](i),
			do.MustInvoke[service.Notifier](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.SpaceHandler, error) {
		return handler.NewSpaceHandler(do.MustInvoke[service.SpaceService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.RecordHandler, error) {
		return handler.NewRecordHandler(do.MustInvoke[service.RecordService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ReconcileHandler, error) {
		return handler.NewReconcileHandler(do.MustInvoke[service.Reconciler](i)), nil
	})
	return inj
}
