package editing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"github.com/ucouncil/portal/backend/go-services/pkg/metrics"
)

const (
	DefaultLeaseTTL      = 10 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
)

// Guard decides whether this process may run a sweep pass. Used to keep
// several replicas from sweeping the same interval.
type Guard interface {
	TryAcquire(ctx context.Context) (bool, error)
}

// TickerFunc returns a tick channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// SweepResult is reported to the observer after every pass.
type SweepResult struct {
	Cleared int64
	Skipped bool
	Err     error
}

// Sweeper periodically clears leases older than the TTL. It is the only
// mechanism that reclaims leases abandoned by closed clients.
type Sweeper struct {
	stores   map[Kind]Store
	ttl      time.Duration
	interval time.Duration
	clock    Clock
	ticker   TickerFunc
	guard    Guard
	observe  func(SweepResult)
	log      *logger.Component

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SweeperOption func(*Sweeper)

func WithTTL(d time.Duration) SweeperOption { return func(s *Sweeper) { s.ttl = d } }

func WithInterval(d time.Duration) SweeperOption { return func(s *Sweeper) { s.interval = d } }

func WithSweepClock(c Clock) SweeperOption { return func(s *Sweeper) { s.clock = c } }

func WithTicker(f TickerFunc) SweeperOption { return func(s *Sweeper) { s.ticker = f } }

func WithGuard(g Guard) SweeperOption { return func(s *Sweeper) { s.guard = g } }

// WithObserver registers a callback invoked after every scheduled pass.
func WithObserver(f func(SweepResult)) SweeperOption { return func(s *Sweeper) { s.observe = f } }

func NewSweeper(stores map[Kind]Store, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		stores:   stores,
		ttl:      DefaultLeaseTTL,
		interval: DefaultSweepInterval,
		clock:    SystemClock,
		ticker:   realTicker,
		log:      logger.Named("sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) TTL() time.Duration { return s.ttl }

// RunOnce clears every lease older than the TTL across all stores and
// returns how many were cleared. A failing store does not stop the others.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.ttl)
	kinds := make([]Kind, 0, len(s.stores))
	for k := range s.stores {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var total int64
	var firstErr error
	for _, k := range kinds {
		n, err := s.stores[k].ClearStaleLeases(ctx, cutoff)
		if err != nil {
			s.log.Errorf("clear stale leases for %s: %v", k, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sweep %s: %w", k, err)
			}
			continue
		}
		if n > 0 {
			metrics.LeasesSwept.WithLabelValues(string(k)).Add(float64(n))
			s.log.Infof("cleared %d stale %s leases (older than %s)", n, k, cutoff.Format(time.RFC3339))
		}
		total += n
	}
	return total, firstErr
}

// Start runs a pass on every tick until Stop is called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	ticks, stop := s.ticker(s.interval)
	s.log.Infof("started (interval=%s ttl=%s)", s.interval, s.ttl)

	go func(done chan struct{}) {
		defer close(done)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				s.tick(ctx)
			}
		}
	}(s.done)
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Infof("stopped")
}

func (s *Sweeper) tick(ctx context.Context) {
	var res SweepResult
	if s.guard != nil {
		ok, err := s.guard.TryAcquire(ctx)
		if err != nil {
			s.log.Warnf("sweep guard unavailable, sweeping anyway: %v", err)
		} else if !ok {
			res.Skipped = true
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			s.notify(res)
			return
		}
	}
	res.Cleared, res.Err = s.RunOnce(ctx)
	if res.Err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
	} else {
		metrics.SweepRuns.WithLabelValues("ok").Inc()
	}
	s.notify(res)
}

func (s *Sweeper) notify(res SweepResult) {
	if s.observe != nil {
		s.observe(res)
	}
}
