package input

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Goboolean/hts-connector/internal/domain"
)

const (
	candleTokens    = 7
	indicatorTokens = 5

	timestampLayout = "2006-01-02 15:04:05"
)

var (
	ErrTokenCount        = errors.New("unexpected token count")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrNegativeTimestamp = errors.New("timestamp before unix epoch")
	ErrInvalidNumber     = errors.New("invalid number")
	ErrFractionalValue   = errors.New("indicator value has fractional part")
)

// ParseCandle decodes `date time event open high close low`. Close comes
// before low on the wire.
func ParseCandle(line string, loc *time.Location) (domain.Candle, error) {
	parts := strings.Fields(line)
	if len(parts) != candleTokens {
		return domain.Candle{}, fmt.Errorf("%w: expected %d, found %d", ErrTokenCount, candleTokens, len(parts))
	}

	ts, err := parseTimestamp(parts[0], parts[1], loc)
	if err != nil {
		return domain.Candle{}, err
	}

	var prices [4]float64
	for i, tok := range parts[3:] {
		v, err := parseFinite(tok)
		if err != nil {
			return domain.Candle{}, err
		}
		prices[i] = v
	}

	return domain.Candle{
		Event:     parts[2],
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Close:     prices[2],
		Low:       prices[3],
	}, nil
}

// ParseIndicator decodes `date time event property value`. The value must be
// integral; a fractional value yields ErrFractionalValue rather than being
// truncated.
func ParseIndicator(line string, loc *time.Location) (domain.Indicator, error) {
	parts := strings.Fields(line)
	if len(parts) != indicatorTokens {
		return domain.Indicator{}, fmt.Errorf("%w: expected %d, found %d", ErrTokenCount, indicatorTokens, len(parts))
	}

	ts, err := parseTimestamp(parts[0], parts[1], loc)
	if err != nil {
		return domain.Indicator{}, err
	}

	raw, err := parseFinite(parts[4])
	if err != nil {
		return domain.Indicator{}, err
	}
	value, err := toInteger(raw)
	if err != nil {
		return domain.Indicator{}, err
	}

	return domain.Indicator{
		Event:     parts[2],
		Property:  parts[3],
		Value:     value,
		Timestamp: ts,
	}, nil
}

func parseTimestamp(date, clock string, loc *time.Location) (int64, error) {
	// time.Parse accepts fractional seconds after "05" even when the layout
	// has none; the clock token must be exactly HH:MM:SS.
	if !isClock(clock) {
		return 0, fmt.Errorf("%w: %q %q", ErrInvalidTimestamp, date, clock)
	}
	t, err := time.ParseInLocation(timestampLayout, date+" "+clock, loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %q %q", ErrInvalidTimestamp, date, clock)
	}
	ts := t.Unix()
	if ts < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeTimestamp, ts)
	}
	return ts, nil
}

func isClock(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 2, 5:
			if s[i] != ':' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// 2^63 is exactly representable, int64 max is not.
const int64Bound = 1 << 63

func toInteger(v float64) (int64, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %v", ErrFractionalValue, v)
	}
	if v >= int64Bound || v < -int64Bound {
		return 0, fmt.Errorf("%w: %v out of int64 range", ErrInvalidNumber, v)
	}
	return int64(v), nil
}

// FormatCandle renders c in the 7-token input shape.
func FormatCandle(c domain.Candle, loc *time.Location) string {
	return strings.Join([]string{
		time.Unix(c.Timestamp, 0).In(loc).Format(timestampLayout),
		c.Event,
		formatFloat(c.Open),
		formatFloat(c.High),
		formatFloat(c.Close),
		formatFloat(c.Low),
	}, " ")
}

// FormatIndicator renders i in the 5-token input shape.
func FormatIndicator(i domain.Indicator, loc *time.Location) string {
	return strings.Join([]string{
		time.Unix(i.Timestamp, 0).In(loc).Format(timestampLayout),
		i.Event,
		i.Property,
		strconv.FormatInt(i.Value, 10) + ".0",
	}, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type ClassifierConfig struct {
	// StrictIndicators turns an indicator-shaped line with a fractional value
	// into an error instead of a silent skip.
	StrictIndicators bool
	// Location defaults to domain.KST.
	Location *time.Location
}

// Classifier implements the lenient two-attempt policy: candle first, then
// indicator, otherwise the line is dropped without error.
type Classifier struct {
	loc    *time.Location
	strict bool
}

func NewClassifier(config ClassifierConfig) *Classifier {
	loc := config.Location
	if loc == nil {
		loc = domain.KST
	}
	return &Classifier{
		loc:    loc,
		strict: config.StrictIndicators,
	}
}

func (c *Classifier) Classify(line string) (domain.Record, error) {
	if candle, err := ParseCandle(line, c.loc); err == nil {
		return domain.CandleRecord(candle), nil
	}

	indicator, err := ParseIndicator(line, c.loc)
	if err == nil {
		return domain.IndicatorRecord(indicator), nil
	}
	if c.strict && errors.Is(err, ErrFractionalValue) {
		return domain.UnknownRecord(), err
	}
	return domain.UnknownRecord(), nil
}

// Explain returns why line would be skipped, or nil if it decodes.
func (c *Classifier) Explain(line string) error {
	_, candleErr := ParseCandle(line, c.loc)
	if candleErr == nil {
		return nil
	}
	_, indicatorErr := ParseIndicator(line, c.loc)
	if indicatorErr == nil {
		return nil
	}
	return fmt.Errorf("candle: %w; indicator: %w", candleErr, indicatorErr)
}
