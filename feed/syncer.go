// ABOUTME: Background synchronizer that keeps a Feed fresh while a view is mounted
// ABOUTME: Reloads on a fixed interval and immediately on every activityCreated signal
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/events"
	"go.uber.org/zap"
)

// DefaultInterval is the background refresh period.
const DefaultInterval = 30 * time.Second

// Syncer owns the refresh loop for one mounted view. All loads it issues
// are silent. After Stop returns no further results reach the feed.
type Syncer struct {
	feed     *Feed
	source   Source
	bus      *events.Bus
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	stopped bool
	started bool
	cancel  context.CancelFunc
	unsub   func()
	wg      sync.WaitGroup
	trigger chan struct{}
}

func NewSyncer(f *Feed, src Source, bus *events.Bus, interval time.Duration, logger *zap.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		feed:     f,
		source:   src,
		bus:      bus,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start issues the mount load and begins the refresh loop.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	if s.bus != nil {
		s.unsub = s.bus.OnActivityCreated(func(events.ActivityCreated) { s.Trigger() })
	}
	s.mu.Unlock()

	s.spawn(ctx, true)

	s.wg.Add(1)
	go s.loop(ctx)
}

// Trigger requests an immediate silent reload. Requests made while one is
// already queued collapse into it.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(ctx, false)
		case <-s.trigger:
			s.spawn(ctx, false)
		}
	}
}

// spawn runs one load in its own goroutine so a slow response never delays
// the next tick or trigger.
func (s *Syncer) spawn(ctx context.Context, visible bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	tok := s.feed.Begin(visible)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		list, err := s.source.Recent(ctx, s.feed.Cap())

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			s.feed.Abandon(tok)
			return
		}
		if err != nil {
			s.logger.Warn("activity feed refresh failed",
				zap.String("op", "recent"),
				zap.String("entity", "activity"),
				zap.Error(err))
		}
		s.feed.Complete(tok, list, err)
	}()
}

// Stop cancels the loop and in-flight loads, then waits for them to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, unsub := s.cancel, s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
