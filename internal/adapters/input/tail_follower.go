package input

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/nxadm/tail"
	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
)

// TailFollower follows a file through nxadm/tail instead of the poll loop.
// Classification, ordering and the fatal-error policy are the same as
// Follower. Unlike Follower, the duration deadline is observed between any
// two lines rather than only between read passes.
type TailFollower struct {
	dispatcher
	pollInterval time.Duration
	watch        bool
	running      atomic.Bool
}

func NewTailFollower(config FollowerConfig, classifier ports.LineClassifier, handler ports.RecordHandler) (*TailFollower, error) {
	if err := checkReadable(config.Path); err != nil {
		return nil, err
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &TailFollower{
		dispatcher: dispatcher{
			path:       config.Path,
			classifier: classifier,
			handler:    handler,
			metrics:    domain.NewFollowMetrics(),
		},
		pollInterval: config.PollInterval,
		watch:        config.Watch,
	}, nil
}

func (t *TailFollower) AddObserver(o ports.ProcessingObserver) {
	t.observers = append(t.observers, o)
}

func (t *TailFollower) Metrics() *domain.FollowMetrics {
	return t.metrics
}

func (t *TailFollower) Path() string {
	return t.path
}

func (t *TailFollower) Follow(ctx context.Context, maxDuration time.Duration) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.running.Store(false)

	config := tail.Config{
		Follow:    true,
		ReOpen:    false,
		MustExist: true,
		Poll:      !t.watch,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	}

	tl, err := tail.TailFile(t.path, config)
	if err != nil {
		return domain.NewStageError(domain.StageOpen, t.path, 0, err)
	}
	defer tl.Cleanup()
	defer tl.Stop()

	t.metrics.SetRunning(true)
	defer t.metrics.SetRunning(false)

	log.Info().Str("file", t.path).Dur("max_duration", maxDuration).Msg("Started tailing file")

	deadline := time.NewTimer(maxDuration)
	defer deadline.Stop()

	// tail does not report end of file; a quiet poll interval counts as one poll.
	idle := time.NewTicker(t.pollInterval)
	defer idle.Stop()

	var lineNo int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			log.Info().Str("file", t.path).Int64("lines", lineNo).Msg("Follow duration elapsed")
			return nil
		case <-idle.C:
			t.metrics.MarkPass(time.Now())
			t.observePoll()
		case line, ok := <-tl.Lines:
			if !ok {
				if err := tl.Wait(); err != nil {
					return domain.NewStageError(domain.StageRead, t.path, lineNo+1, err)
				}
				return nil
			}
			if line.Err != nil {
				return domain.NewStageError(domain.StageRead, t.path, lineNo+1, line.Err)
			}
			lineNo++
			if err := t.dispatch(ctx, line.Text, lineNo); err != nil {
				return err
			}
			idle.Reset(t.pollInterval)
		}
	}
}
