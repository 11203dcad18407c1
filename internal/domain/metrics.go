package domain

import (
	"sync/atomic"
	"time"
)

// FollowMetrics holds the counters of a follower. All methods are safe for
// concurrent use; the follower writes while metrics and readiness read.
type FollowMetrics struct {
	linesRead     atomic.Int64
	candles       atomic.Int64
	indicators    atomic.Int64
	skipped       atomic.Int64
	bytesConsumed atomic.Int64
	polls         atomic.Int64
	lastPass      atomic.Int64
	running       atomic.Bool

	StartTime time.Time
}

type FollowSnapshot struct {
	LinesRead     int64         `json:"lines_read"`
	Candles       int64         `json:"candles"`
	Indicators    int64         `json:"indicators"`
	Skipped       int64         `json:"skipped"`
	BytesConsumed int64         `json:"bytes_consumed"`
	Polls         int64         `json:"polls"`
	LastPass      time.Time     `json:"last_pass"`
	Running       bool          `json:"running"`
	Uptime        time.Duration `json:"uptime_ns"`
}

func NewFollowMetrics() *FollowMetrics {
	return &FollowMetrics{StartTime: time.Now()}
}

func (m *FollowMetrics) RecordLine(kind RecordKind, size int) {
	m.linesRead.Add(1)
	m.bytesConsumed.Add(int64(size))
	switch kind {
	case KindCandle:
		m.candles.Add(1)
	case KindIndicator:
		m.indicators.Add(1)
	default:
		m.skipped.Add(1)
	}
}

func (m *FollowMetrics) RecordPoll() {
	m.polls.Add(1)
}

// MarkPass stamps the end of an inner read pass.
func (m *FollowMetrics) MarkPass(t time.Time) {
	m.lastPass.Store(t.UnixNano())
}

func (m *FollowMetrics) SetRunning(running bool) {
	m.running.Store(running)
}

func (m *FollowMetrics) IsRunning() bool {
	return m.running.Load()
}

func (m *FollowMetrics) LinesRead() int64     { return m.linesRead.Load() }
func (m *FollowMetrics) BytesConsumed() int64 { return m.bytesConsumed.Load() }

func (m *FollowMetrics) LastPass() time.Time {
	ns := m.lastPass.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (m *FollowMetrics) GetSnapshot() FollowSnapshot {
	return FollowSnapshot{
		LinesRead:     m.linesRead.Load(),
		Candles:       m.candles.Load(),
		Indicators:    m.indicators.Load(),
		Skipped:       m.skipped.Load(),
		BytesConsumed: m.bytesConsumed.Load(),
		Polls:         m.polls.Load(),
		LastPass:      m.LastPass(),
		Running:       m.running.Load(),
		Uptime:        time.Since(m.StartTime),
	}
}
