package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
)

type InfluxHandlerConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxHandler writes one point per record. The measurement is the record
// event; candles carry open/high/low/close fields, indicators a property tag
// and a value field.
type InfluxHandler struct {
	client influxdb2.Client
	writer pointWriter
}

// NewInfluxHandler connects with second precision and pings the server.
func NewInfluxHandler(config InfluxHandlerConfig) (*InfluxHandler, error) {
	if config.URL == "" || config.Org == "" || config.Bucket == "" {
		return nil, errors.New("influx: url, org and bucket are required")
	}

	client := influxdb2.NewClientWithOptions(config.URL, config.Token,
		influxdb2.DefaultOptions().SetPrecision(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influx ping: %w", err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("influx ping: %s not ready", config.URL)
	}

	log.Info().Str("url", config.URL).Str("bucket", config.Bucket).Msg("Connected to InfluxDB")

	return &InfluxHandler{
		client: client,
		writer: client.WriteAPIBlocking(config.Org, config.Bucket),
	}, nil
}

func candlePoint(c domain.Candle) *write.Point {
	return influxdb2.NewPoint(c.Event,
		nil,
		map[string]interface{}{
			"open":  c.Open,
			"high":  c.High,
			"low":   c.Low,
			"close": c.Close,
		},
		time.Unix(c.Timestamp, 0))
}

func indicatorPoint(ind domain.Indicator) *write.Point {
	return influxdb2.NewPoint(ind.Event,
		map[string]string{"property": ind.Property},
		map[string]interface{}{"value": ind.Value},
		time.Unix(ind.Timestamp, 0))
}

func (h *InfluxHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	return h.writer.WritePoint(ctx, candlePoint(candle))
}

func (h *InfluxHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	return h.writer.WritePoint(ctx, indicatorPoint(indicator))
}

func (h *InfluxHandler) Close() error {
	if h.client != nil {
		h.client.Close()
	}
	return nil
}
