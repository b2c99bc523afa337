package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
)

// EventPruner periodically deletes access events older than a configurable
// retention period. It runs as a background goroutine and is stopped via
// its context or the Stop method.
//
// A retention of 0 disables pruning entirely.
type EventPruner struct {
	store     store.AccessEventStore
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// PrunerConfig holds the parameters for NewEventPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of access history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewEventPruner creates a pruner but does not start it.
func NewEventPruner(s store.AccessEventStore, cfg PrunerConfig, logger zerolog.Logger) *EventPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &EventPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called. Calling Start twice is a no-op.
func (p *EventPruner) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	if p.retention <= 0 {
		p.logger.Info().Msg("event pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info().
		Int("retention_days", int(p.retention.Hours()/24)).
		Int("interval_hours", int(p.interval.Hours())).
		Msg("event pruner started")
}

// Stop signals the pruner to exit and waits for it to finish. It returns
// immediately if the pruner was never started.
func (p *EventPruner) Stop() {
	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	<-p.done
}

func (p *EventPruner) loop(ctx context.Context) {
	defer close(p.done)

	// Clean up any backlog first.
	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes events older than the retention period and returns how
// many went. Errors are logged.
func (p *EventPruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error().Err(err).Msg("event prune")
		return 0
	}
	if deleted > 0 {
		p.logger.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("event prune")
	}
	return deleted
}
