package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

// SyncTier is one look-ahead window run on its own cadence, e.g. 7 days every 6h.
type SyncTier struct {
	Name      string
	DaysAhead int
	Interval  time.Duration
}

type batchSyncer interface {
	SyncAllConfiguredLeagues(ctx context.Context, daysAhead int) (BatchSyncResult, error)
}

// SyncScheduler triggers SyncAllConfiguredLeagues per tier. Tiers run
// independently and may overlap; a tier whose previous run is still going
// skips the tick.
type SyncScheduler struct {
	syncer     batchSyncer
	tiers      []SyncTier
	runOnStart bool
	pool       *ants.Pool
	running    map[string]*atomic.Bool
	logger     *logging.Logger
}

func NewSyncScheduler(syncer batchSyncer, tiers []SyncTier, runOnStart bool, logger *logging.Logger) (*SyncScheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: at least one sync tier is required", ErrInvalidInput)
	}

	running := make(map[string]*atomic.Bool, len(tiers))
	for _, tier := range tiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: sync tier name is required", ErrInvalidInput)
		}
		if _, dup := running[name]; dup {
			return nil, fmt.Errorf("%w: duplicate sync tier %q", ErrInvalidInput, name)
		}
		if err := validateDays(tier.DaysAhead); err != nil {
			return nil, fmt.Errorf("sync tier %s: %w", name, err)
		}
		if tier.Interval <= 0 {
			return nil, fmt.Errorf("%w: sync tier %s interval must be > 0", ErrInvalidInput, name)
		}
		running[name] = &atomic.Bool{}
	}

	pool, err := ants.NewPool(len(tiers), ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create sync worker pool: %w", err)
	}

	return &SyncScheduler{
		syncer:     syncer,
		tiers:      append([]SyncTier(nil), tiers...),
		runOnStart: runOnStart,
		pool:       pool,
		running:    running,
		logger:     logger.Named("scheduler"),
	}, nil
}

// Run blocks until ctx is cancelled, then waits up to drainTimeout for in-flight runs.
func (s *SyncScheduler) Run(ctx context.Context, drainTimeout time.Duration) {
	var wg conc.WaitGroup
	for _, tier := range s.tiers {
		wg.Go(func() { s.loop(ctx, tier) })
	}
	wg.Wait()

	if err := s.pool.ReleaseTimeout(drainTimeout); err != nil {
		s.logger.Warn("sync worker pool did not drain", "error", err)
	}
}

// Close releases the worker pool without waiting. Safe after Run returns.
func (s *SyncScheduler) Close() {
	s.pool.Release()
}

func (s *SyncScheduler) loop(ctx context.Context, tier SyncTier) {
	s.logger.Info("sync tier started", "tier", tier.Name, "days_ahead", tier.DaysAhead, "interval", tier.Interval)
	if s.runOnStart {
		s.Trigger(ctx, tier)
	}

	ticker := time.NewTicker(tier.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger(ctx, tier)
		}
	}
}

// Trigger submits one run of tier. It reports false when the tier is already
// running or the pool rejected the task.
func (s *SyncScheduler) Trigger(ctx context.Context, tier SyncTier) bool {
	flag, ok := s.running[tier.Name]
	if !ok {
		s.logger.Warn("unknown sync tier", "tier", tier.Name)
		return false
	}
	if !flag.CompareAndSwap(false, true) {
		s.logger.Info("sync tier still running, skipping tick", "tier", tier.Name)
		return false
	}

	err := s.pool.Submit(func() {
		defer flag.Store(false)
		s.runTier(ctx, tier)
	})
	if err != nil {
		flag.Store(false)
		s.logger.Warn("submit sync tier failed", "tier", tier.Name, "error", err)
		return false
	}
	return true
}

func (s *SyncScheduler) runTier(ctx context.Context, tier SyncTier) {
	ctx, span := startJobSpan(ctx, "usecase.SyncScheduler.runTier")
	defer span.End()

	started := time.Now()
	result, err := s.syncer.SyncAllConfiguredLeagues(ctx, tier.DaysAhead)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled sync failed", "tier", tier.Name, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled sync finished",
		"tier", tier.Name,
		"days_ahead", tier.DaysAhead,
		"upserted", result.Upserted,
		"failed", result.Failed,
		"leagues_failed", result.LeaguesFailed,
		"duration", time.Since(started),
	)
}
