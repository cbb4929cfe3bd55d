package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vilaca/event-monitor/internal/api"
	"github.com/vilaca/event-monitor/internal/domain"
)

// Logger interface for logging operations.
type Logger interface {
	Printf(format string, v ...interface{})
}

// PollerState is the stage of the ingestion cycle the poller is in.
type PollerState int32

const (
	StateIdle PollerState = iota
	StateFetching
	StateFiltering
	StateIndexing
	StateSinking
	StateSleeping
	StateStopped
)

func (s PollerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateFiltering:
		return "filtering"
	case StateIndexing:
		return "indexing"
	case StateSinking:
		return "sinking"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PollerConfig holds the collaborators of a Poller.
// Sink and Broadcaster are optional.
type PollerConfig struct {
	Fetcher     api.EventFetcher
	Indexer     *Indexer
	Sink        CacheSink
	Broadcaster *Broadcaster
	Kinds       []string
	Interval    time.Duration
	Logger      Logger
}

// CycleStats describes one fetch-filter-index-sink cycle.
type CycleStats struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Downloaded int
	Filtered   int
	Indexed    int
	Skipped    int
	FetchErr   error
	SinkErr    error
}

// PollerStats are running totals since the poller was created.
type PollerStats struct {
	Cycles        int       `json:"cycles"`
	FailedFetches int       `json:"failed_fetches"`
	Downloaded    int       `json:"downloaded"`
	Filtered      int       `json:"filtered"`
	Indexed       int       `json:"indexed"`
	Skipped       int       `json:"skipped"`
	LastCycleID   string    `json:"last_cycle_id,omitempty"`
	LastCycleAt   time.Time `json:"last_cycle_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Poller runs the ingestion loop: fetch, filter, index, sink, sleep.
// It is the only caller of Indexer.Index, so it is the single writer of the index.
type Poller struct {
	fetcher     api.EventFetcher
	indexer     *Indexer
	sink        CacheSink
	broadcaster *Broadcaster
	kinds       domain.KindSet
	interval    time.Duration
	logger      Logger

	state   atomic.Int32
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stats   PollerStats
}

// NewPoller creates a new poller.
func NewPoller(cfg PollerConfig) *Poller {
	return &Poller{
		fetcher:     cfg.Fetcher,
		indexer:     cfg.Indexer,
		sink:        cfg.Sink,
		broadcaster: cfg.Broadcaster,
		kinds:       domain.NewKindSet(cfg.Kinds),
		interval:    cfg.Interval,
		logger:      cfg.Logger,
	}
}

// Start begins periodic polling in a background goroutine.
// The loop ends when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	// A previous loop may have ended on its own context; wait for it to
	// finish before starting another.
	p.wg.Wait()
	p.running = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.logger.Printf("[Poller] Starting with %v poll interval", p.interval)

	p.wg.Add(1)
	go p.pollLoop(ctx)
}

// Stop cancels the loop and waits for the current cycle to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	p.logger.Printf("[Poller] Stopping...")
	cancel()
	p.wg.Wait()
	p.logger.Printf("[Poller] Stopped")
}

// State returns the current stage of the loop.
func (p *Poller) State() PollerState {
	return PollerState(p.state.Load())
}

// Stats returns a copy of the running totals.
func (p *Poller) Stats() PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Poller) setState(s PollerState) {
	p.state.Store(int32(s))
}

// pollLoop runs one cycle immediately and then sleeps for the interval
// after each cycle finishes. Cancellation is observed while sleeping.
func (p *Poller) pollLoop(ctx context.Context) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		p.setState(StateStopped)
	}()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		p.RunOnce(ctx)

		timer.Reset(p.interval)
		p.setState(StateSleeping)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single cycle. A fetch failure ends the cycle early
// without touching the index; a sink failure is logged and the events
// stay indexed.
func (p *Poller) RunOnce(ctx context.Context) CycleStats {
	cycle := CycleStats{
		ID:        uuid.Must(uuid.NewV7()).String(),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		cycle.Duration = time.Since(cycle.StartedAt)
		p.record(cycle)
		p.setState(StateIdle)
	}()

	p.setState(StateFetching)
	events, err := p.fetcher.FetchEvents(ctx)
	if err != nil {
		cycle.FetchErr = err
		p.logger.Printf("[Poller] cycle %s: fetch failed, skipping cycle: %v", cycle.ID, err)
		return cycle
	}
	cycle.Downloaded = len(events)

	p.setState(StateFiltering)
	filtered := FilterEvents(events, p.kinds)
	cycle.Filtered = len(filtered)

	p.setState(StateIndexing)
	result := p.indexer.Index(filtered)
	cycle.Indexed = len(result.Indexed)
	cycle.Skipped = result.Skipped

	if p.sink != nil && len(filtered) > 0 {
		p.setState(StateSinking)
		if err := p.sink.Append(ctx, filtered); err != nil {
			cycle.SinkErr = err
			p.logger.Printf("[Poller] cycle %s: failed to cache events: %v", cycle.ID, err)
		}
	}

	if p.broadcaster != nil && len(result.Indexed) > 0 {
		if dropped := p.broadcaster.Publish(result.Indexed); dropped > 0 {
			p.logger.Printf("[Poller] cycle %s: dropped %d events for slow subscribers", cycle.ID, dropped)
		}
	}

	return cycle
}

// record folds a finished cycle into the running totals.
func (p *Poller) record(cycle CycleStats) {
	p.mu.Lock()
	p.stats.Cycles++
	p.stats.Downloaded += cycle.Downloaded
	p.stats.Filtered += cycle.Filtered
	p.stats.Indexed += cycle.Indexed
	p.stats.Skipped += cycle.Skipped
	p.stats.LastCycleID = cycle.ID
	p.stats.LastCycleAt = cycle.StartedAt
	p.stats.LastError = ""
	switch {
	case cycle.FetchErr != nil:
		p.stats.FailedFetches++
		p.stats.LastError = cycle.FetchErr.Error()
	case cycle.SinkErr != nil:
		p.stats.LastError = cycle.SinkErr.Error()
	}
	totals := p.stats
	p.mu.Unlock()

	if cycle.FetchErr == nil {
		p.logger.Printf("[Poller] cycle %s: events %d/%d (filtered/downloaded), total %d/%d, completed in %v",
			cycle.ID, cycle.Filtered, cycle.Downloaded, totals.Filtered, totals.Downloaded,
			cycle.Duration.Round(time.Millisecond))
	}
}
