package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// ~1 day of 1s records
const defaultStreamMaxLen = 90000

type RedisHandlerConfig struct {
	Addr         string // e.g. "localhost:6379"
	Password     string
	DB           int
	StreamMaxLen int64
	LatestTTL    time.Duration
}

// RedisHandler appends every record to a per-event stream and keeps the
// most recent record of each stream under a ":latest" key.
type RedisHandler struct {
	client    *redis.Client
	maxLen    int64
	latestTTL time.Duration
}

// NewRedisHandler connects and pings the server.
func NewRedisHandler(config RedisHandlerConfig) (*RedisHandler, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxLen := config.StreamMaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}

	log.Info().Str("addr", config.Addr).Msg("Connected to Redis")
	return &RedisHandler{client: client, maxLen: maxLen, latestTTL: config.LatestTTL}, nil
}

// Client returns the underlying client for health checks.
func (h *RedisHandler) Client() *redis.Client { return h.client }

func candleStream(c domain.Candle) string {
	return "candles:" + c.Event
}

func indicatorStream(ind domain.Indicator) string {
	return "indicators:" + ind.Event + ":" + ind.Property
}

func (h *RedisHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	return h.publish(ctx, candleStream(candle), candle)
}

func (h *RedisHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	return h.publish(ctx, indicatorStream(indicator), indicator)
}

func (h *RedisHandler) publish(ctx context.Context, stream string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	pipe := h.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: h.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Set(ctx, stream+":latest", data, h.latestTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (h *RedisHandler) Close() error {
	return h.client.Close()
}
