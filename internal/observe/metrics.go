package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// meterName is the instrumentation scope of every noise monitor instrument.
const meterName = "github.com/oshokin/noise-monitor"

// levelBuckets covers the 0..255 mean magnitude scale.
//
//nolint:gochecknoglobals // Fixed histogram layout.
var levelBuckets = []float64{10, 20, 40, 60, 80, 100, 120, 160, 200, 255}

// Metrics holds the instruments of the monitor and implements the
// controller observer interface.
type Metrics struct {
	// Frames counts processed sample frames.
	Frames metric.Int64Counter
	// Level records the mean magnitude of every frame.
	Level metric.Float64Histogram
	// Episodes counts alert episodes that started.
	Episodes metric.Int64Counter
	// AcquisitionFailures counts failed microphone acquisitions.
	AcquisitionFailures metric.Int64Counter
	// Running is 1 while detection runs.
	Running metric.Int64UpDownCounter

	mu   sync.Mutex
	last domain.Snapshot
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)

	var (
		met = new(Metrics)
		err error
	)

	if met.Frames, err = m.Int64Counter("noisemonitor.frames",
		metric.WithDescription("Sample frames processed."),
	); err != nil {
		return nil, err
	}

	if met.Level, err = m.Float64Histogram("noisemonitor.level",
		metric.WithDescription("Mean frequency magnitude per frame on the 0..255 scale."),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Episodes, err = m.Int64Counter("noisemonitor.alert.episodes",
		metric.WithDescription("Alert episodes started."),
	); err != nil {
		return nil, err
	}

	if met.AcquisitionFailures, err = m.Int64Counter("noisemonitor.acquisition.failures",
		metric.WithDescription("Microphone acquisitions that failed."),
	); err != nil {
		return nil, err
	}

	if met.Running, err = m.Int64UpDownCounter("noisemonitor.running",
		metric.WithDescription("Whether detection is running."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// FrameSampled records one processed frame.
func (m *Metrics) FrameSampled(level float64) {
	ctx := context.Background()

	m.Frames.Add(ctx, 1)
	m.Level.Record(ctx, level)
}

// StateChanged derives transition counters from consecutive snapshots.
func (m *Metrics) StateChanged(s domain.Snapshot) {
	ctx := context.Background()

	m.mu.Lock()
	previous := m.last
	m.last = s
	m.mu.Unlock()

	switch {
	case s.Running && !previous.Running:
		m.Running.Add(ctx, 1)
	case !s.Running && previous.Running:
		m.Running.Add(ctx, -1)
	}

	if s.Alerting && !previous.Alerting {
		m.Episodes.Add(ctx, 1, metric.WithAttributes(
			attribute.Float64("threshold", s.Threshold),
		))
	}

	if s.Status.IsError() && s.Status != previous.Status {
		m.AcquisitionFailures.Add(ctx, 1)
	}
}
