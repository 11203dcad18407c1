package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamKeys(t *testing.T) {
	assert.Equal(t, "candles:005930", candleStream(testCandle))
	assert.Equal(t, "indicators:005930:volume", indicatorStream(testIndicator))
}

func TestNewRedisHandler_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	_, err := NewRedisHandler(RedisHandlerConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
