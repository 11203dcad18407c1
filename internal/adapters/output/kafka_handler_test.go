package output

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goboolean/hts-connector/internal/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaHandler_TopicPerKind(t *testing.T) {
	w := &fakeWriter{}
	h := newKafkaHandler(w, DefaultKafkaHandlerConfig())
	ctx := context.Background()

	require.NoError(t, h.HandleCandle(ctx, testCandle))
	require.NoError(t, h.HandleIndicator(ctx, testIndicator))
	require.Len(t, w.messages, 2)

	assert.Equal(t, "hts.candles", w.messages[0].Topic)
	assert.Equal(t, []byte("005930"), w.messages[0].Key)
	assert.Equal(t, testCandle.Time(), w.messages[0].Time)
	var c domain.Candle
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &c))
	assert.Equal(t, testCandle, c)

	assert.Equal(t, "hts.indicators", w.messages[1].Topic)
	var ind domain.Indicator
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &ind))
	assert.Equal(t, testIndicator, ind)
}

func TestKafkaHandler_WriteError(t *testing.T) {
	w := &fakeWriter{err: errSinkDown}
	h := newKafkaHandler(w, DefaultKafkaHandlerConfig())
	assert.ErrorIs(t, h.HandleCandle(context.Background(), testCandle), errSinkDown)
}

func TestKafkaHandler_Close(t *testing.T) {
	w := &fakeWriter{}
	h := newKafkaHandler(w, DefaultKafkaHandlerConfig())
	require.NoError(t, h.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaHandler_Validation(t *testing.T) {
	_, err := NewKafkaHandler(KafkaHandlerConfig{CandleTopic: "c", IndicatorTopic: "i"})
	assert.Error(t, err)

	_, err = NewKafkaHandler(KafkaHandlerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	h, err := NewKafkaHandler(DefaultKafkaHandlerConfig())
	require.NoError(t, err)
	assert.NoError(t, h.Close())
}
