// Package output provides record sinks for the connector.
//
// Every sink implements ports.RecordHandler:
//   - JSONHandler: Buffered newline-delimited JSON to file or stdout
//   - InfluxHandler: InfluxDB points, one per record
//   - SQLiteHandler, BoltHandler: local durable storage
//   - RedisHandler, KafkaHandler: stream publication
//   - MultiHandler: ordered fan-out
//
// A sink error is fatal for the follower run that produced the record.
package output

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// JSONHandler writes each record as one JSON object per line.
//
// Features:
//   - Buffered writes (64KB)
//   - Periodic flush every second
//   - File sync on flush
type JSONHandler struct {
	bufWriter *bufio.Writer
	file      *os.File
	encoder   *json.Encoder
	mu        sync.Mutex
	stopFlush chan struct{}
	closeOnce sync.Once
}

type JSONHandlerConfig struct {
	FilePath string // Output file path, appended to
	Stdout   bool   // Write to stdout, takes priority over FilePath
	Pretty   bool
	Writer   io.Writer // Explicit destination, takes priority over both
}

// NewJSONHandler creates a JSON sink.
//
// Output Priority:
//  1. config.Writer if set
//  2. Stdout if config.Stdout is true
//  3. File if config.FilePath is set
//  4. io.Discard otherwise
func NewJSONHandler(config JSONHandlerConfig) (*JSONHandler, error) {
	var writer io.Writer
	var file *os.File

	switch {
	case config.Writer != nil:
		writer = config.Writer
	case config.Stdout:
		writer = os.Stdout
	case config.FilePath != "":
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		writer = file
	default:
		writer = io.Discard
	}

	const bufferSize = 64 * 1024
	bufWriter := bufio.NewWriterSize(writer, bufferSize)

	h := &JSONHandler{
		bufWriter: bufWriter,
		file:      file,
		stopFlush: make(chan struct{}),
	}

	h.encoder = json.NewEncoder(bufWriter)
	h.encoder.SetEscapeHTML(false)
	if config.Pretty {
		h.encoder.SetIndent("", "  ")
	}

	go h.periodicFlush()

	return h, nil
}

func (h *JSONHandler) periodicFlush() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Flush()
		case <-h.stopFlush:
			return
		}
	}
}

func (h *JSONHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	return h.encode(domain.CandleRecord(candle))
}

func (h *JSONHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	return h.encode(domain.IndicatorRecord(indicator))
}

func (h *JSONHandler) encode(rec domain.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(rec)
}

// Flush forces buffered records to the destination.
func (h *JSONHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.bufWriter.Flush(); err != nil {
		return err
	}
	if h.file != nil {
		return h.file.Sync()
	}
	return nil
}

// Close stops periodic flushing, flushes, and closes the file if any.
func (h *JSONHandler) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.stopFlush)

		h.mu.Lock()
		defer h.mu.Unlock()

		if err = h.bufWriter.Flush(); err != nil {
			return
		}
		if h.file != nil {
			if err = h.file.Sync(); err != nil {
				return
			}
			err = h.file.Close()
		}
	})
	return err
}
