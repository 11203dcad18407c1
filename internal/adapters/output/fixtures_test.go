package output

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
)

var (
	testCandle = domain.Candle{
		Event:     "005930",
		Timestamp: 1609426800,
		Open:      81000,
		High:      81500,
		Low:       80900,
		Close:     81200,
	}
	testCandleLater = domain.Candle{
		Event:     "005930",
		Timestamp: 1609426860,
		Open:      81200,
		High:      81300,
		Low:       81100,
		Close:     81250,
	}
	testIndicator = domain.Indicator{
		Event:     "005930",
		Property:  "volume",
		Value:     1520,
		Timestamp: 1609426800,
	}
)

type call struct {
	sink string
	kind domain.RecordKind
}

// callLog records handler invocations across several sinks in order.
type callLog struct {
	mu    sync.Mutex
	calls []call
}

func (l *callLog) add(c call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

type fakeSink struct {
	name    string
	log     *callLog
	err     error
	closed  bool
	closeFn func() error
}

func (s *fakeSink) HandleCandle(ctx context.Context, c domain.Candle) error {
	s.log.add(call{sink: s.name, kind: domain.KindCandle})
	return s.err
}

func (s *fakeSink) HandleIndicator(ctx context.Context, ind domain.Indicator) error {
	s.log.add(call{sink: s.name, kind: domain.KindIndicator})
	return s.err
}

func (s *fakeSink) Close() error {
	s.closed = true
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

type observation struct {
	kind    domain.RecordKind
	elapsed time.Duration
	err     error
}

type recordingObserver struct {
	observed []observation
}

func (o *recordingObserver) ObserveHandle(kind domain.RecordKind, elapsed time.Duration, err error) {
	o.observed = append(o.observed, observation{kind: kind, elapsed: elapsed, err: err})
}

var errSinkDown = errors.New("sink down")
