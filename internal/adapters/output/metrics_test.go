package output

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goboolean/hts-connector/internal/domain"
)

func TestPrometheusMetrics_Lines(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("test", reg, nil)

	m.ObserveLine(domain.KindCandle)
	m.ObserveLine(domain.KindCandle)
	m.ObserveLine(domain.KindIndicator)
	m.ObserveLine(domain.KindUnknown)
	m.ObservePoll()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesTotal.WithLabelValues("candle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesTotal.WithLabelValues("indicator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollsTotal))
}

func TestPrometheusMetrics_Sink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics("test", reg, nil)

	m.ObserveHandle(domain.KindCandle, 2*time.Millisecond, nil)
	m.ObserveHandle(domain.KindCandle, 3*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkErrors.WithLabelValues("candle")))
	count, err := testutil.GatherAndCount(reg, "test_sink_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_FollowMetricsFuncs(t *testing.T) {
	reg := prometheus.NewRegistry()
	fm := domain.NewFollowMetrics()
	m := NewPrometheusMetrics("test", reg, fm)

	fm.RecordLine(domain.KindCandle, 40)
	fm.RecordLine(domain.KindUnknown, 2)
	fm.SetRunning(true)

	assert.Equal(t, 42.0, testutil.ToFloat64(m.bytesConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.followerActive))
}

func TestPrometheusMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics("", prometheus.NewRegistry(), nil)
		NewPrometheusMetrics("", prometheus.NewRegistry(), nil)
	})
}

func TestPrometheusMetrics_StopWithoutStart(t *testing.T) {
	m := NewPrometheusMetrics("test", prometheus.NewRegistry(), nil)
	assert.NoError(t, m.StopServer())
}
