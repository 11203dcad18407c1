package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
)

// NamedHandler pairs a sink with the name used in errors and metrics.
type NamedHandler struct {
	Name    string
	Handler ports.RecordHandler
}

// MultiHandler delivers every record to each sink in order. The first sink
// error stops delivery of that record and is returned.
type MultiHandler struct {
	sinks []NamedHandler
}

func NewMultiHandler(sinks ...NamedHandler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

func (m *MultiHandler) Len() int {
	return len(m.sinks)
}

func (m *MultiHandler) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

func (m *MultiHandler) HandleCandle(ctx context.Context, candle domain.Candle) error {
	for _, s := range m.sinks {
		if err := s.Handler.HandleCandle(ctx, candle); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func (m *MultiHandler) HandleIndicator(ctx context.Context, indicator domain.Indicator) error {
	for _, s := range m.sinks {
		if err := s.Handler.HandleIndicator(ctx, indicator); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

// Close closes every sink that holds resources, in reverse order.
func (m *MultiHandler) Close() error {
	var errs []error
	for i := len(m.sinks) - 1; i >= 0; i-- {
		if c, ok := m.sinks[i].Handler.(ports.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", m.sinks[i].Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
