package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	reconcilePassCounter   metric.Int64Counter
	reconcilePassDuration  metric.Float64Histogram
	reconcileRemovedCount  metric.Int64Counter
	reconcileReinitCount   metric.Int64Counter
	reconcileFailedCounter metric.Int64Counter
)

// InitReconcileMetrics registers the heartbeat reconciler instruments on the
// global meter provider.
func InitReconcileMetrics() error {
	meter := otel.Meter("spacekeeper.reconcile")

	var err error

	reconcilePassCounter, err = meter.Int64Counter(
		"space.reconcile.passes",
		metric.WithDescription("Number of reconcile passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	reconcilePassDuration, err = meter.Float64Histogram(
		"space.reconcile.duration",
		metric.WithDescription("Duration of reconcile passes"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Stale cached participants removed
	reconcileRemovedCount, err = meter.Int64Counter(
		"space.reconcile.removed",
		metric.WithDescription("Cached participants removed because the provider no longer reports them"),
		metric.WithUnit("{participant}"),
	)
	if err != nil {
		return err
	}

	reconcileReinitCount, err = meter.Int64Counter(
		"space.reconcile.reinit",
		metric.WithDescription("Re-init prompts sent to participants missing from the cache"),
		metric.WithUnit("{participant}"),
	)
	if err != nil {
		return err
	}

	reconcileFailedCounter, err = meter.Int64Counter(
		"space.reconcile.session_errors",
		metric.WithDescription("Sessions whose reconciliation reported an error"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordReconcilePass records one finished pass. Safe to call before
// InitReconcileMetrics; instruments that are not registered are skipped.
func RecordReconcilePass(ctx context.Context, durationMs float64, removed, reinit, failed int64) {
	status := "success"
	if failed > 0 {
		status = "partial"
	}

	if reconcilePassCounter != nil {
		reconcilePassCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}

	if reconcilePassDuration != nil {
		reconcilePassDuration.Record(ctx, durationMs,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}

	if reconcileRemovedCount != nil && removed > 0 {
		reconcileRemovedCount.Add(ctx, removed)
	}

	if reconcileReinitCount != nil && reinit > 0 {
		reconcileReinitCount.Add(ctx, reinit)
	}

	if reconcileFailedCounter != nil && failed > 0 {
		reconcileFailedCounter.Add(ctx, failed)
	}
}
