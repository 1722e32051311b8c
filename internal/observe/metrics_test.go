package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
)

// newTestMetrics returns Metrics backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	return m, reader
}

// sumOf returns the int64 sum data point total for name.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			return total
		}
	}

	return 0
}

func TestMetrics_Transitions(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)

	idle := domain.Snapshot{Threshold: 80, Status: domain.StatusIdle}
	detecting := domain.Snapshot{Running: true, Threshold: 80, Status: domain.StatusDetecting}
	alerting := domain.Snapshot{Running: true, Alerting: true, Threshold: 80, Status: domain.StatusNoiseDetected}
	failed := domain.Snapshot{Threshold: 80, Status: domain.AcquisitionFailedStatus()}

	m.StateChanged(detecting)
	m.FrameSampled(12)
	m.FrameSampled(96)
	m.StateChanged(alerting)
	m.StateChanged(idle)
	m.StateChanged(failed)
	m.StateChanged(idle)

	require.EqualValues(t, 2, sumOf(t, reader, "noisemonitor.frames"))
	require.EqualValues(t, 1, sumOf(t, reader, "noisemonitor.alert.episodes"))
	require.EqualValues(t, 1, sumOf(t, reader, "noisemonitor.acquisition.failures"))
	require.EqualValues(t, 0, sumOf(t, reader, "noisemonitor.running"))
}

func TestPrometheusProvider_Handler(t *testing.T) {
	t.Parallel()

	provider, err := NewPrometheusProvider()
	require.NoError(t, err)

	t.Cleanup(func() { _ = provider.MeterProvider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.MeterProvider)
	require.NoError(t, err)

	m.FrameSampled(42)

	recorder := httptest.NewRecorder()
	provider.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "noisemonitor_frames")
	require.Contains(t, string(body), "go_goroutines")
}
