package input

import (
	"bufio"
	"context"
	"math"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
)

// DemoWriter appends synthetic candle and indicator lines to a file, playing
// the external process the connector normally follows.
type DemoWriter struct {
	path             string
	rate             int
	malformedPercent int
	indicatorPercent int
	events           []string
	properties       []string
	generated        atomic.Uint64
}

type DemoConfig struct {
	Path             string
	Rate             int // lines per second
	MalformedPercent int
	IndicatorPercent int
}

func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		Rate:             10,
		MalformedPercent: 5,
		IndicatorPercent: 30,
	}
}

// MaxDemoRate bounds the write rate so the tick interval stays positive.
const MaxDemoRate = 100000

func NewDemoWriter(config DemoConfig) *DemoWriter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Rate > MaxDemoRate {
		log.Warn().Int("rate", config.Rate).Int("max", MaxDemoRate).Msg("Demo rate clamped")
		config.Rate = MaxDemoRate
	}
	return &DemoWriter{
		path:             config.Path,
		rate:             config.Rate,
		malformedPercent: config.MalformedPercent,
		indicatorPercent: config.IndicatorPercent,
		events:           []string{"KOSPI200", "코스닥150", "삼성전자", "BTCUSDT"},
		properties:       []string{"풋외국인", "콜외국인", "개인순매수", "기관순매수"},
	}
}

// Run appends lines until ctx is cancelled. Each line is written and flushed
// whole so a follower never sees a half-written record.
func (w *DemoWriter) Run(ctx context.Context) error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	prices := make(map[string]float64, len(w.events))

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	log.Info().Str("file", w.path).Int("rate", w.rate).Msg("Demo writer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("total_generated", w.generated.Load()).Msg("Demo writer stopped")
			return nil
		case now := <-ticker.C:
			line := w.generateLine(rng, now, prices)
			if _, err := buf.WriteString(line + "\n"); err != nil {
				return err
			}
			if err := buf.Flush(); err != nil {
				return err
			}
			w.generated.Add(1)
		}
	}
}

func (w *DemoWriter) generateLine(rng *rand.Rand, now time.Time, prices map[string]float64) string {
	ts := now.Unix()
	event := w.events[rng.Intn(len(w.events))]

	roll := rng.Intn(100)
	switch {
	case roll < w.malformedPercent:
		return malformedLines[rng.Intn(len(malformedLines))]
	case roll < w.malformedPercent+w.indicatorPercent:
		return FormatIndicator(domain.Indicator{
			Event:     event,
			Property:  w.properties[rng.Intn(len(w.properties))],
			Value:     int64(rng.Intn(2001) - 1000),
			Timestamp: ts,
		}, domain.KST)
	}

	last, ok := prices[event]
	if !ok {
		last = 100 + rng.Float64()*300
	}
	open := last
	closePrice := roundCents(open * (1 + rng.NormFloat64()*0.002))
	high := roundCents(math.Max(open, closePrice) + rng.Float64()*0.5)
	low := roundCents(math.Min(open, closePrice) - rng.Float64()*0.5)
	prices[event] = closePrice

	return FormatCandle(domain.Candle{
		Event:     event,
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
	}, domain.KST)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (w *DemoWriter) interval() time.Duration {
	return time.Second / time.Duration(w.rate)
}

func (w *DemoWriter) Generated() uint64 {
	return w.generated.Load()
}

var malformedLines = []string{
	"",
	"# header",
	"2024-04-30 13:21:00 테스트 368.85 368.9 368.75",
	"2024-05-02 11:00:00 옵션 풋외국인 -13.5",
	"2024-04-30 25:61:00 테스트 1 2 3 4",
}
