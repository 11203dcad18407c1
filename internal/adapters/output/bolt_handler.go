package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/Goboolean/hts-connector/internal/domain"
)

var (
	CandleBucket    = []byte("candles")
	IndicatorBucket = []byte("indicators")
)

type BoltHandlerConfig struct {
	DBPath string
	NoSync bool
}

// BoltHandler stores records in a local bbolt file. Keys sort by event,
// then property for indicators, then timestamp, so a record seen twice
// overwrites itself.
type BoltHandler struct {
	db     *bolt.DB
	dbPath string
}

func NewBoltHandler(config BoltHandlerConfig) (*BoltHandler, error) {
	dir := filepath.Dir(config.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := bolt.Open(config.DBPath, 0600, &bolt.Options{
		NoSync:     config.NoSync,
		NoGrowSync: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{CandleBucket, IndicatorBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().Str("db_path", config.DBPath).Msg("Bolt record store opened")

	return &BoltHandler{db: db, dbPath: config.DBPath}, nil
}

func candleKey(c domain.Candle) []byte {
	return appendTimestamp(append([]byte(c.Event), 0), c.Timestamp)
}

func indicatorKey(ind domain.Indicator) []byte {
	key := append([]byte(ind.Event), 0)
	key = append(key, ind.Property...)
	key = append(key, 0)
	return appendTimestamp(key, ind.Timestamp)
}

func appendTimestamp(key []byte, ts int64) []byte {
	return binary.BigEndian.AppendUint64(key, uint64(ts))
}

func (h *BoltHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	return h.put(CandleBucket, candleKey(candle), candle)
}

func (h *BoltHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	return h.put(IndicatorBucket, indicatorKey(indicator), indicator)
}

func (h *BoltHandler) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

// Candles returns the stored candles of one event in timestamp order.
func (h *BoltHandler) Candles(event string) ([]domain.Candle, error) {
	var out []domain.Candle
	err := h.scan(CandleBucket, append([]byte(event), 0), func(v []byte) error {
		var c domain.Candle
		if err := json.Unmarshal(v, &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// Indicators returns the stored values of one event property in timestamp order.
func (h *BoltHandler) Indicators(event, property string) ([]domain.Indicator, error) {
	prefix := append([]byte(event), 0)
	prefix = append(prefix, property...)
	prefix = append(prefix, 0)

	var out []domain.Indicator
	err := h.scan(IndicatorBucket, prefix, func(v []byte) error {
		var ind domain.Indicator
		if err := json.Unmarshal(v, &ind); err != nil {
			return err
		}
		out = append(out, ind)
		return nil
	})
	return out, err
}

func (h *BoltHandler) scan(bucket, prefix []byte, fn func(v []byte) error) error {
	return h.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored candles and indicators.
func (h *BoltHandler) Count() (candles, indicators int) {
	h.db.View(func(tx *bolt.Tx) error {
		candles = tx.Bucket(CandleBucket).Stats().KeyN
		indicators = tx.Bucket(IndicatorBucket).Stats().KeyN
		return nil
	})
	return candles, indicators
}

func (h *BoltHandler) Close() error {
	return h.db.Close()
}
