package folders

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/workspaced/internal/folders"

// Metrics holds folder registry instrumentation.
type Metrics struct {
	meter   metric.Meter
	logger  *zap.Logger
	added   metric.Int64Counter
	removed metric.Int64Counter
	active  metric.Int64UpDownCounter
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

	m.added, err = m.meter.Int64Counter(
		"workspaced.folders.added_total",
		metric.WithDescription("Total number of workspace folders registered"),
		metric.WithUnit("{folder}"),
	)
	if err != nil {
		m.logger.Warn("failed to create added counter", zap.Error(err))
	}

	m.removed, err = m.meter.Int64Counter(
		"workspaced.folders.removed_total",
		metric.WithDescription("Total number of workspace folders removed"),
		metric.WithUnit("{folder}"),
	)
	if err != nil {
		m.logger.Warn("failed to create removed counter", zap.Error(err))
	}

	m.active, err = m.meter.Int64UpDownCounter(
		"workspaced.folders.active",
		metric.WithDescription("Number of currently registered workspace folders"),
		metric.WithUnit("{folder}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active gauge", zap.Error(err))
	}
}

// FolderAdded records a new folder registration.
func (m *Metrics) FolderAdded(ctx context.Context) {
	if m.added != nil {
		m.added.Add(ctx, 1)
	}
	if m.active != nil {
		m.active.Add(ctx, 1)
	}
}

// FolderRemoved records a folder removal.
func (m *Metrics) FolderRemoved(ctx context.Context) {
	if m.removed != nil {
		m.removed.Add(ctx, 1)
	}
	if m.active != nil {
		m.active.Add(ctx, -1)
	}
}
