package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/vocespace/spacekeeper/internal/bootstrap"
	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/infra/cache"
	"github.com/vocespace/spacekeeper/internal/modules/service"
)

var reconcileTimeout time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [space-id]",
	Short: "Run one reconciliation pass against the live roster and print the report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", time.Minute, "abort the pass after this long")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	inj := bootstrap.BuildContainer()
	if _, err := do.Invoke[*config.Config](inj); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rdb, err := do.Invoke[*redis.Client](inj)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = cache.Close(rdb) }()

	rc, err := do.Invoke[service.Reconciler](inj)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), reconcileTimeout)
	defer cancel()

	var report any
	if len(args) == 1 {
		report, err = rc.ReconcileSession(ctx, args[0])
	} else {
		report, err = rc.Tick(ctx)
	}
	if err != nil {
		return err
	}

	out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
