package output

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goboolean/hts-connector/internal/domain"
)

func newTestBolt(t *testing.T) *BoltHandler {
	t.Helper()
	h, err := NewBoltHandler(BoltHandlerConfig{
		DBPath: filepath.Join(t.TempDir(), "data", "records.db"),
		NoSync: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestBoltHandler_StoresInTimestampOrder(t *testing.T) {
	h := newTestBolt(t)
	ctx := context.Background()

	require.NoError(t, h.HandleCandle(ctx, testCandleLater))
	require.NoError(t, h.HandleCandle(ctx, testCandle))

	candles, err := h.Candles("005930")
	require.NoError(t, err)
	assert.Equal(t, []domain.Candle{testCandle, testCandleLater}, candles)
}

func TestBoltHandler_RepeatedRecordOverwrites(t *testing.T) {
	h := newTestBolt(t)
	ctx := context.Background()

	require.NoError(t, h.HandleCandle(ctx, testCandle))
	require.NoError(t, h.HandleCandle(ctx, testCandle))
	require.NoError(t, h.HandleIndicator(ctx, testIndicator))

	candles, indicators := h.Count()
	assert.Equal(t, 1, candles)
	assert.Equal(t, 1, indicators)
}

func TestBoltHandler_EventPrefixIsExact(t *testing.T) {
	h := newTestBolt(t)
	ctx := context.Background()

	other := testCandle
	other.Event = "0059301"
	require.NoError(t, h.HandleCandle(ctx, testCandle))
	require.NoError(t, h.HandleCandle(ctx, other))

	candles, err := h.Candles("005930")
	require.NoError(t, err)
	assert.Equal(t, []domain.Candle{testCandle}, candles)
}

func TestBoltHandler_IndicatorsByProperty(t *testing.T) {
	h := newTestBolt(t)
	ctx := context.Background()

	other := testIndicator
	other.Property = "trades"
	other.Value = 7
	require.NoError(t, h.HandleIndicator(ctx, testIndicator))
	require.NoError(t, h.HandleIndicator(ctx, other))

	got, err := h.Indicators("005930", "volume")
	require.NoError(t, err)
	assert.Equal(t, []domain.Indicator{testIndicator}, got)

	got, err = h.Indicators("005930", "trades")
	require.NoError(t, err)
	assert.Equal(t, []domain.Indicator{other}, got)
}

func TestBoltHandler_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	h, err := NewBoltHandler(BoltHandlerConfig{DBPath: path})
	require.NoError(t, err)
	require.NoError(t, h.HandleCandle(context.Background(), testCandle))
	require.NoError(t, h.Close())

	h, err = NewBoltHandler(BoltHandlerConfig{DBPath: path})
	require.NoError(t, err)
	defer h.Close()

	candles, err := h.Candles(testCandle.Event)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}
