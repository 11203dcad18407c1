package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/Goboolean/hts-connector/internal/domain"
)

type KafkaHandlerConfig struct {
	Brokers        []string
	CandleTopic    string
	IndicatorTopic string
	WriteTimeout   time.Duration
}

func DefaultKafkaHandlerConfig() KafkaHandlerConfig {
	return KafkaHandlerConfig{
		Brokers:        []string{"localhost:9092"},
		CandleTopic:    "hts.candles",
		IndicatorTopic: "hts.indicators",
		WriteTimeout:   10 * time.Second,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaHandler publishes records as JSON, keyed by event so that one event
// stays on one partition and keeps file order.
type KafkaHandler struct {
	writer         messageWriter
	candleTopic    string
	indicatorTopic string
}

func NewKafkaHandler(config KafkaHandlerConfig) (*KafkaHandler, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if config.CandleTopic == "" || config.IndicatorTopic == "" {
		return nil, errors.New("kafka: candle and indicator topics are required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: config.WriteTimeout,
		BatchSize:    1,
	}

	log.Info().Strs("brokers", config.Brokers).
		Str("candle_topic", config.CandleTopic).
		Str("indicator_topic", config.IndicatorTopic).
		Msg("Kafka writer configured")

	return newKafkaHandler(w, config), nil
}

func newKafkaHandler(w messageWriter, config KafkaHandlerConfig) *KafkaHandler {
	return &KafkaHandler{
		writer:         w,
		candleTopic:    config.CandleTopic,
		indicatorTopic: config.IndicatorTopic,
	}
}

func (h *KafkaHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	return h.write(ctx, h.candleTopic, candle.Event, candle.Time(), candle)
}

func (h *KafkaHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	return h.write(ctx, h.indicatorTopic, indicator.Event, indicator.Time(), indicator)
}

func (h *KafkaHandler) write(ctx context.Context, topic, key string, ts time.Time, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  ts,
	})
}

func (h *KafkaHandler) Close() error {
	return h.writer.Close()
}
