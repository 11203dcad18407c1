package domain

import "time"

// KST is the civil timezone every input timestamp is interpreted in,
// independent of the host's local zone. Korea has not observed DST since 1988.
var KST = time.FixedZone("KST", 9*60*60)

// Candle is a timestamped OHLC price bar for one named event.
// No ordering between the four prices is enforced.
type Candle struct {
	Event     string  `json:"event"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// Time returns the candle timestamp as a time.Time in KST.
func (c Candle) Time() time.Time {
	return time.Unix(c.Timestamp, 0).In(KST)
}

// Indicator is a timestamped, integer valued measurement named by Property.
type Indicator struct {
	Event     string `json:"event"`
	Property  string `json:"property"`
	Value     int64  `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

func (i Indicator) Time() time.Time {
	return time.Unix(i.Timestamp, 0).In(KST)
}

type RecordKind string

const (
	KindUnknown   RecordKind = "unknown"
	KindCandle    RecordKind = "candle"
	KindIndicator RecordKind = "indicator"
)

// Record is the outcome of classifying one line. Only the field matching
// Kind is meaningful; KindUnknown means the line is skipped.
type Record struct {
	Kind      RecordKind `json:"kind"`
	Candle    Candle     `json:"candle,omitzero"`
	Indicator Indicator  `json:"indicator,omitzero"`
}

func CandleRecord(c Candle) Record {
	return Record{Kind: KindCandle, Candle: c}
}

func IndicatorRecord(i Indicator) Record {
	return Record{Kind: KindIndicator, Indicator: i}
}

func UnknownRecord() Record {
	return Record{Kind: KindUnknown}
}

func (r Record) IsUnknown() bool {
	return r.Kind == KindUnknown
}
