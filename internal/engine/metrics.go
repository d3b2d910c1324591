package engine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter. Both are no-ops unless the host installs
// a provider.
var (
	tracer = otel.Tracer("nbsync.engine")
	meter  = otel.Meter("nbsync.engine")
)

var (
	notificationsTotal metric.Int64Counter
	handlerErrorsTotal metric.Int64Counter
	cellDeltaSize      metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		notificationsTotal, err = meter.Int64Counter(
			"nbsync_notifications_total",
			metric.WithDescription("Notifications handed to the sender, by method and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		handlerErrorsTotal, err = meter.Int64Counter(
			"nbsync_handler_errors_total",
			metric.WithDescription("Sync errors by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cellDeltaSize, err = meter.Int64Histogram(
			"nbsync_cell_delta_size",
			metric.WithDescription("Cells deleted plus inserted per structural change"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordNotification(ctx context.Context, method string, err error) {
	if initMetrics() != nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

func recordSyncError(ctx context.Context, code SyncErrorCode) {
	if initMetrics() != nil {
		return
	}
	handlerErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(code)),
	))
}

func recordCellDelta(ctx context.Context, registration string, size int) {
	if initMetrics() != nil {
		return
	}
	cellDeltaSize.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("registration", registration),
	))
}

// startDeliverySpan opens a span around one notification delivery.
func startDeliverySpan(ctx context.Context, d Delivery) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Outbox.deliver",
		trace.WithAttributes(
			attribute.String("nbsync.method", d.Method),
			attribute.String("nbsync.registration", d.Registration),
			attribute.String("nbsync.document", d.Document),
			attribute.Int64("nbsync.seq", d.Seq),
		),
	)
}
