package input

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
	"github.com/Goboolean/hts-connector/pkg/sanitize"
)

// dispatcher classifies one line and hands the record to the handler. It is
// shared by the poll and tail followers so both apply the same skip and
// fatal-error policy.
type dispatcher struct {
	path       string
	classifier ports.LineClassifier
	handler    ports.RecordHandler
	observers  []ports.ProcessingObserver
	metrics    *domain.FollowMetrics
}

type explainer interface {
	Explain(line string) error
}

func (d *dispatcher) dispatch(ctx context.Context, line string, lineNo int64) error {
	rec, err := d.classifier.Classify(line)
	if err != nil {
		return domain.NewStageError(domain.StageDecode, d.path, lineNo, err)
	}

	switch rec.Kind {
	case domain.KindCandle:
		if err := d.handler.HandleCandle(ctx, rec.Candle); err != nil {
			return domain.NewStageError(domain.StageDispatch, d.path, lineNo, err)
		}
	case domain.KindIndicator:
		if err := d.handler.HandleIndicator(ctx, rec.Indicator); err != nil {
			return domain.NewStageError(domain.StageDispatch, d.path, lineNo, err)
		}
	default:
		d.logSkip(line, lineNo)
	}

	d.metrics.RecordLine(rec.Kind, len(line))
	for _, o := range d.observers {
		o.ObserveLine(rec.Kind)
	}
	return nil
}

func (d *dispatcher) logSkip(line string, lineNo int64) {
	e := log.Debug()
	if !e.Enabled() {
		return
	}
	e = e.Str("file", d.path).Int64("line", lineNo).Str("text", sanitize.Line(line, sanitize.DefaultMaxDisplayLength))
	if ex, ok := d.classifier.(explainer); ok {
		e = e.AnErr("reason", ex.Explain(line))
	}
	e.Msg("Skipped unrecognised line")
}

func (d *dispatcher) observePoll() {
	d.metrics.RecordPoll()
	for _, o := range d.observers {
		o.ObservePoll()
	}
}
