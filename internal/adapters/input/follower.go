package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Goboolean/hts-connector/internal/domain"
	"github.com/Goboolean/hts-connector/internal/ports"
)

const DefaultPollInterval = time.Second

var ErrAlreadyRunning = errors.New("follower already running")

type FollowerConfig struct {
	Path string
	// PollInterval is the wait after reaching end of file. Default 1s.
	PollInterval time.Duration
	// Watch wakes the wait early on filesystem write events.
	Watch bool
}

// Follower reads a growing file from offset zero, line by line, and hands
// every decoded record to a handler in file order. It owns its file handle
// and cursor exclusively; run one Follower per file.
type Follower struct {
	dispatcher
	pollInterval time.Duration
	watch        bool
	running      atomic.Bool
}

// NewFollower checks that path can be opened. The check is advisory: Follow
// reopens the path, so a file recreated in between is still followed.
func NewFollower(config FollowerConfig, classifier ports.LineClassifier, handler ports.RecordHandler) (*Follower, error) {
	if err := checkReadable(config.Path); err != nil {
		return nil, err
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Follower{
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

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return domain.NewStageError(domain.StageOpen, path, 0, err)
	}
	return f.Close()
}

func (f *Follower) AddObserver(o ports.ProcessingObserver) {
	f.observers = append(f.observers, o)
}

func (f *Follower) Metrics() *domain.FollowMetrics {
	return f.metrics
}

func (f *Follower) Path() string {
	return f.path
}

// cursor tracks consumed bytes. pending holds an unterminated tail that is
// completed on a later pass, or delivered as is when the run expires.
type cursor struct {
	offset  int64
	line    int64
	pending strings.Builder
}

// Follow runs until maxDuration has elapsed, ctx is cancelled, or a fatal
// error occurs. The duration is checked only between read passes, so a pass
// over a large backlog completes first. A maxDuration <= 0 reads the file
// once and returns.
//
// Returns nil on expiry, ctx.Err() on cancellation, and *domain.StageError
// for open, read, decode and dispatch failures.
func (f *Follower) Follow(ctx context.Context, maxDuration time.Duration) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer f.running.Store(false)

	start := time.Now()

	file, err := os.Open(f.path)
	if err != nil {
		return domain.NewStageError(domain.StageOpen, f.path, 0, err)
	}
	defer file.Close()

	w := newWaiter(f.path, f.pollInterval, f.watch)
	defer w.Close()

	f.metrics.SetRunning(true)
	defer f.metrics.SetRunning(false)

	log.Info().
		Str("file", f.path).
		Dur("max_duration", maxDuration).
		Dur("poll_interval", f.pollInterval).
		Msg("Started following file")

	reader := bufio.NewReader(file)
	var cur cursor

	for {
		eof, err := f.drain(ctx, reader, &cur)
		if err != nil {
			return err
		}
		f.metrics.MarkPass(time.Now())

		if time.Since(start) >= maxDuration {
			break
		}

		if eof {
			if err := w.Wait(ctx); err != nil {
				return err
			}
			f.observePoll()

			if _, err := file.Seek(cur.offset, io.SeekStart); err != nil {
				return domain.NewStageError(domain.StageRead, f.path, cur.line, err)
			}
			reader.Reset(file)
		}
	}

	// The run is over, so a final line without its newline will not be
	// completed by a later pass. Deliver it once.
	if cur.pending.Len() > 0 {
		line := cur.pending.String()
		cur.pending.Reset()
		cur.line++
		log.Debug().
			Str("file", f.path).
			Int64("line", cur.line).
			Int("bytes", len(line)).
			Msg("Dispatching unterminated final line")
		if err := f.dispatch(ctx, line, cur.line); err != nil {
			return err
		}
	}

	snap := f.metrics.GetSnapshot()
	log.Info().
		Str("file", f.path).
		Int64("lines", snap.LinesRead).
		Int64("candles", snap.Candles).
		Int64("indicators", snap.Indicators).
		Int64("skipped", snap.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Follow duration elapsed")
	return nil
}

// drain reads complete lines until end of file. It reports eof=true when no
// more bytes are currently available.
func (f *Follower) drain(ctx context.Context, reader *bufio.Reader, cur *cursor) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		chunk, err := reader.ReadString('\n')
		cur.offset += int64(len(chunk))
		if err != nil {
			if errors.Is(err, io.EOF) {
				cur.pending.WriteString(chunk)
				return true, nil
			}
			return false, domain.NewStageError(domain.StageRead, f.path, cur.line+1, err)
		}

		line := chunk
		if cur.pending.Len() > 0 {
			cur.pending.WriteString(chunk)
			line = cur.pending.String()
			cur.pending.Reset()
		}
		cur.line++

		if err := f.dispatch(ctx, line, cur.line); err != nil {
			return false, err
		}
	}
}
