package output

import (
	"context"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePointWriter struct {
	points []*write.Point
	err    error
}

func (w *fakePointWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	if w.err != nil {
		return w.err
	}
	w.points = append(w.points, point...)
	return nil
}

func fieldMap(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tagMap(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func TestCandlePoint(t *testing.T) {
	p := candlePoint(testCandle)

	assert.Equal(t, "005930", p.Name())
	assert.Equal(t, time.Unix(1609426800, 0), p.Time())
	assert.Empty(t, tagMap(p))
	assert.Equal(t, map[string]interface{}{
		"open":  81000.0,
		"high":  81500.0,
		"low":   80900.0,
		"close": 81200.0,
	}, fieldMap(p))
}

func TestIndicatorPoint(t *testing.T) {
	p := indicatorPoint(testIndicator)

	assert.Equal(t, "005930", p.Name())
	assert.Equal(t, time.Unix(1609426800, 0), p.Time())
	assert.Equal(t, map[string]string{"property": "volume"}, tagMap(p))
	assert.Equal(t, map[string]interface{}{"value": int64(1520)}, fieldMap(p))
}

func TestInfluxHandler_WritesPoints(t *testing.T) {
	w := &fakePointWriter{}
	h := &InfluxHandler{writer: w}
	ctx := context.Background()

	require.NoError(t, h.HandleCandle(ctx, testCandle))
	require.NoError(t, h.HandleIndicator(ctx, testIndicator))
	require.Len(t, w.points, 2)
	assert.Contains(t, write.PointToLineProtocol(w.points[1], time.Second), "005930,property=volume value=1520i 1609426800")

	assert.NoError(t, h.Close())
}

func TestInfluxHandler_WriteError(t *testing.T) {
	h := &InfluxHandler{writer: &fakePointWriter{err: errSinkDown}}
	assert.ErrorIs(t, h.HandleIndicator(context.Background(), testIndicator), errSinkDown)
}

func TestNewInfluxHandler_RequiresSettings(t *testing.T) {
	_, err := NewInfluxHandler(InfluxHandlerConfig{URL: "http://localhost:8086"})
	assert.Error(t, err)
}
