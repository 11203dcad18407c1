// Package ports defines the interfaces between the follower core and its
// collaborators (ports and adapters pattern).
//
// The core depends only on these interfaces; concrete sinks and classifiers
// live in internal/adapters/.
package ports

import (
	"context"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// RecordHandler receives decoded records from a follower.
//
// Implementations:
//   - InfluxHandler: InfluxDB time-series write, one point per record
//   - SQLiteHandler, BoltHandler: local durable storage
//   - RedisHandler, KafkaHandler: stream publication
//   - JSONHandler: newline-delimited JSON to stdout or file
//   - MultiHandler: ordered fan-out over several handlers
//
// The follower assumes nothing about what a handler does internally. Any
// returned error is fatal for the current run.
type RecordHandler interface {
	// HandleCandle stores or forwards one candle.
	//
	// Parameters:
	//   - ctx: Cancelled when the run is stopped
	//   - candle: Decoded candle; ownership passes to the handler
	//
	// Returns:
	//   - nil on success
	//   - Error if the record could not be delivered (aborts the run)
	HandleCandle(ctx context.Context, candle domain.Candle) error

	// HandleIndicator stores or forwards one indicator.
	// Same contract as HandleCandle.
	HandleIndicator(ctx context.Context, indicator domain.Indicator) error
}

// Closer is implemented by handlers holding connections or files.
type Closer interface {
	Close() error
}
