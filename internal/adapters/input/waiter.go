package input

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// waiter blocks between read passes after end of file.
type waiter interface {
	Wait(ctx context.Context) error
	Close() error
}

func newWaiter(path string, interval time.Duration, watch bool) waiter {
	if !watch {
		return &pollWaiter{interval: interval}
	}
	w, err := newWatchWaiter(path, interval)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("File watch unavailable, falling back to polling")
		return &pollWaiter{interval: interval}
	}
	return w
}

type pollWaiter struct {
	interval time.Duration
}

func (p *pollWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *pollWaiter) Close() error { return nil }

// watchWaiter returns as soon as the file is written to, and never later
// than one interval, so appended data is still picked up if an event is
// missed.
type watchWaiter struct {
	watcher  *fsnotify.Watcher
	interval time.Duration
}

func newWatchWaiter(path string, interval time.Duration) (*watchWaiter, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	return &watchWaiter{watcher: watcher, interval: interval}, nil
}

func (w *watchWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	events, errs := w.watcher.Events, w.watcher.Errors
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Msg("File watch error")
		}
	}
}

func (w *watchWaiter) Close() error {
	return w.watcher.Close()
}
