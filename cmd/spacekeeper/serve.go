package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vocespace/spacekeeper/internal/bootstrap"
	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/infra/cache"
	"github.com/vocespace/spacekeeper/internal/infra/notify"
	mq "github.com/vocespace/spacekeeper/internal/infra/queue"
	"github.com/vocespace/spacekeeper/internal/modules/handler"
	"github.com/vocespace/spacekeeper/internal/modules/service"
	"github.com/vocespace/spacekeeper/internal/pkg/secrets"
	"github.com/vocespace/spacekeeper/internal/router"
	"github.com/vocespace/spacekeeper/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the event channel and the heartbeat reconciler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	inj := bootstrap.BuildContainer()
	cfg, err := do.Invoke[*config.Config](inj)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Root.APITokenHash != "" {
		if err := secrets.Validate(cfg.Root.APITokenHash); err != nil {
			return fmt.Errorf("root.api_token_hash: %w", err)
		}
	}
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := telemetry.Setup(cfg); err != nil {
		log.Warn("telemetry setup failed, continuing without export", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := do.MustInvoke[*notify.Hub](inj)

	var mqConn *amqp.Connection
	if cfg.RabbitMQ.Enabled {
		if err := listenRelay(ctx, inj, log); err != nil {
			log.Error("event subscriber not started", zap.Error(err))
		} else {
			mqConn = do.MustInvoke[*amqp.Connection](inj)
		}
	}

	switch {
	case !cfg.Reconciler.Enabled:
	case cfg.LiveKit.URL == "":
		log.Warn("reconciler enabled but livekit.url is empty, not starting it")
	default:
		rc := do.MustInvoke[service.Reconciler](inj)
		go func() {
			if err := rc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("reconciler stopped", zap.Error(err))
			}
		}()
	}

	engine, err := router.NewRouter(router.RouterDeps{
		Config:           cfg,
		Log:              log,
		Hub:              hub,
		WSAuth:           do.MustInvoke[notify.Authenticator](inj),
		SpaceHandler:     do.MustInvoke[*handler.SpaceHandler](inj),
		RecordHandler:    do.MustInvoke[*handler.RecordHandler](inj),
		ReconcileHandler: do.MustInvoke[*handler.ReconcileHandler](inj),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	hub.Close()
	if mqConn != nil {
		_ = mqConn.Close()
	}
	if rdb, err := do.Invoke[*redis.Client](inj); err == nil {
		_ = cache.Close(rdb)
	}
	if err := inj.Shutdown(); err != nil {
		log.Warn("container shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	log.Info("graceful shutdown complete")
	return nil
}

// listenRelay feeds broker events from other instances into the local hub.
func listenRelay(ctx context.Context, inj *do.Injector, log *zap.Logger) error {
	sub, err := do.Invoke[*mq.Subscriber](inj)
	if err != nil {
		return err
	}
	relay, err := do.Invoke[*notify.Relay](inj)
	if err != nil {
		return err
	}
	go func() {
		if err := sub.Listen(ctx, relay.Deliver); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event subscriber stopped", zap.Error(err))
		}
	}()
	return nil
}
