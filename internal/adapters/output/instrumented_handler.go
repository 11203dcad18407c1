package output

import (
	"context"
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
)

// InstrumentedHandler reports latency and outcome of every call on the
// wrapped handler to its observers.
type InstrumentedHandler struct {
	next      ports.RecordHandler
	observers []ports.HandlerObserver
}

func NewInstrumentedHandler(next ports.RecordHandler, observers ...ports.HandlerObserver) *InstrumentedHandler {
	return &InstrumentedHandler{next: next, observers: observers}
}

// AddObserver must be called before the first record is handled.
func (h *InstrumentedHandler) AddObserver(o ports.HandlerObserver) {
	h.observers = append(h.observers, o)
}

func (h *InstrumentedHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	start := time.Now()
	err := h.next.HandleCandle(ctx, candle)
	h.observe(domain.KindCandle, time.Since(start), err)
	return err
}

func (h *InstrumentedHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	start := time.Now()
	err := h.next.HandleIndicator(ctx, indicator)
	h.observe(domain.KindIndicator, time.Since(start), err)
	return err
}

func (h *InstrumentedHandler) observe(kind domain.RecordKind, elapsed time.Duration, err error) {
	for _, o := range h.observers {
		o.ObserveHandle(kind, elapsed, err)
	}
}

func (h *InstrumentedHandler) Close() error {
	if c, ok := h.next.(ports.Closer); ok {
		return c.Close()
	}
	return nil
}
