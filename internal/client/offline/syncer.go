package offline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// ProbeFunc reports whether the API is reachable.
type ProbeFunc func(ctx context.Context) error

// Syncer replays the queue when a probe flips from offline to online and
// whenever Trigger is called.
type Syncer struct {
	queue    *Queue
	replayer Replayer
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration

	// AfterFlush runs after every flush that touched at least one item.
	AfterFlush func(ctx context.Context, res FlushResult)

	online  atomic.Bool
	trigger chan struct{}
}

func NewSyncer(queue *Queue, replayer Replayer, probe ProbeFunc, interval, timeout time.Duration) *Syncer {
	return &Syncer{
		queue:    queue,
		replayer: replayer,
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		trigger:  make(chan struct{}, 1),
	}
}

// Online is the result of the last probe.
func (s *Syncer) Online() bool {
	return s.online.Load()
}

// Trigger asks for a flush regardless of connectivity state. It never
// blocks; triggers arriving during a flush collapse into one.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run probes every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.trigger:
			s.flush(ctx)
		}
	}
}

// check probes once and flushes on an offline to online transition.
func (s *Syncer) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.probe(pctx)
	cancel()

	online := err == nil
	was := s.online.Swap(online)
	switch {
	case online && !was:
		slog.Info("connectivity restored", "pending", s.queue.Len())
		s.flush(ctx)
	case !online && was:
		slog.Warn("connectivity lost", "error", err)
	}
}

func (s *Syncer) flush(ctx context.Context) {
	if s.queue.Len() == 0 {
		return
	}
	res := s.queue.Flush(ctx, s.replayer)
	if s.AfterFlush != nil && res.Succeeded+res.Failed > 0 {
		s.AfterFlush(ctx, res)
	}
}
