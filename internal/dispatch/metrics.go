package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/workspaced/internal/dispatch"

// Metrics holds dispatcher instrumentation.
type Metrics struct {
	meter   metric.Meter
	logger  *zap.Logger
	queued  metric.Int64Counter
	pending metric.Int64UpDownCounter
	failed  metric.Int64Counter
}

// NewMetrics creates a Metrics instance.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.queued, err = m.meter.Int64Counter(
		"workspaced.dispatch.tasks_total",
		metric.WithDescription("Total number of tasks submitted to the dispatcher"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		m.logger.Warn("failed to create tasks counter", zap.Error(err))
	}

	m.pending, err = m.meter.Int64UpDownCounter(
		"workspaced.dispatch.tasks_pending",
		metric.WithDescription("Number of tasks waiting in the dispatch queue"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		m.logger.Warn("failed to create pending gauge", zap.Error(err))
	}

	m.failed, err = m.meter.Int64Counter(
		"workspaced.dispatch.task_failures_total",
		metric.WithDescription("Total number of dispatch tasks that failed or panicked"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		m.logger.Warn("failed to create failures counter", zap.Error(err))
	}
}

// TaskQueued records a task submission.
func (m *Metrics) TaskQueued(ctx context.Context) {
	if m.queued != nil {
		m.queued.Add(ctx, 1)
	}
	if m.pending != nil {
		m.pending.Add(ctx, 1)
	}
}

// TaskDone records a task leaving the queue.
func (m *Metrics) TaskDone(ctx context.Context) {
	if m.pending != nil {
		m.pending.Add(ctx, -1)
	}
}

// TaskFailed records a task failure.
func (m *Metrics) TaskFailed(ctx context.Context, name string) {
	if m.failed != nil {
		m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("task", name)))
	}
}
