// Package engine orchestrates translation runs: it partitions work into
// provider-scoped batches, runs them in concurrent waves under per-provider
// budgets, and assembles one result table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/provider"
	"github.com/lingotab/lingotab/internal/ratelimit"
)

var (
	ErrNoRecords       = errors.New("no records to translate")
	ErrNoGroups        = errors.New("no language groups configured")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Settings is one provider's throughput configuration.
type Settings struct {
	BatchSize         int
	ConcurrentBatches int
	Delay             time.Duration
	TokensPerMinute   int
}

func (s Settings) normalized() Settings {
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.ConcurrentBatches < 1 {
		s.ConcurrentBatches = 1
	}
	if s.Delay < 0 {
		s.Delay = 0
	}
	if s.TokensPerMinute < 1 {
		s.TokensPerMinute = 60000
	}
	return s
}

// ProgressFunc receives per-group completion percentages. It is invoked
// from a forwarding goroutine and never blocks the schedulers.
type ProgressFunc func(groupID string, percent int)

// Input describes one translation run.
type Input struct {
	Records  []domain.Record
	Groups   []*domain.Group
	Progress ProgressFunc

	// Prior, when set, is merged under the new run's results by record
	// key, so a retry over failed keys cannot regress earlier successes.
	Prior domain.Table
}

// Engine owns the per-provider rate limiters and settings for the life of
// the process; individual runs share them so concurrent runs against the
// same provider stay inside one budget.
type Engine struct {
	registry *provider.Registry
	settings map[string]Settings
	limiters map[string]*ratelimit.Limiter
	logger   zerolog.Logger
}

func New(registry *provider.Registry, settings map[string]Settings, logger zerolog.Logger) *Engine {
	normalized := make(map[string]Settings, len(settings))
	limiters := make(map[string]*ratelimit.Limiter, len(settings))
	for name, s := range settings {
		normalized[name] = s.normalized()
		limiters[name] = ratelimit.New(normalized[name].TokensPerMinute)
	}
	return &Engine{
		registry: registry,
		settings: normalized,
		limiters: limiters,
		logger:   logger,
	}
}

// Run executes one translation run. Per-task failures never surface as
// errors: they are embedded in the table as Error-category sentinels. Run
// itself fails only for structurally invalid input; on cancellation it
// returns the table built so far together with the context error.
func (e *Engine) Run(ctx context.Context, in Input) (domain.Table, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Int("records", len(in.Records)).
		Int("groups", len(in.Groups)).
		Msg("translation run started")

	tracker := newProgressTracker(in.Progress)
	defer tracker.close()

	byProvider := groupsByProvider(in.Groups)

	tables := make([]domain.Table, len(in.Groups))
	var eg errgroup.Group
	slot := 0
	for providerName, groups := range byProvider {
		providerName, groups, idx := providerName, groups, slot
		slot++

		eg.Go(func() error {
			tables[idx] = e.runProvider(ctx, logger, providerName, in.Records, groups, tracker)
			return nil
		})
	}
	_ = eg.Wait()

	// Union: no two providers share a group id, so every write lands on a
	// distinct key.
	result := make(domain.Table, len(in.Groups))
	for _, table := range tables {
		for groupID, entries := range table {
			result[groupID] = entries
		}
	}

	if in.Prior != nil {
		result = Merge(in.Prior, result)
	}

	logger.Info().Msg("translation run finished")
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func validateInput(in Input) error {
	if len(in.Records) == 0 {
		return ErrNoRecords
	}
	if len(in.Groups) == 0 {
		return ErrNoGroups
	}
	for _, group := range in.Groups {
		if !domain.KnownProvider(group.Provider) {
			return fmt.Errorf("group %q: %w: %q", group.ID, ErrUnknownProvider, group.Provider)
		}
	}
	return nil
}

func groupsByProvider(groups []*domain.Group) map[string][]*domain.Group {
	byProvider := make(map[string][]*domain.Group)
	for _, group := range groups {
		byProvider[group.Provider] = append(byProvider[group.Provider], group)
	}
	return byProvider
}
