package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/provider"
	"github.com/lingotab/lingotab/internal/ratelimit"
)

// ReasonCanceled marks tasks that were never dispatched because the run
// was canceled.
const ReasonCanceled = "Run canceled before this task was dispatched"

// providerRun holds one provider's mutable run state. The table and the
// per-group counters are shared by all batch goroutines of the current
// wave and guarded by one mutex.
type providerRun struct {
	logger   zerolog.Logger
	client   provider.Client
	limiter  *ratelimit.Limiter
	settings Settings
	tracker  *progressTracker

	totalPerGroup int

	mu        sync.Mutex
	table     domain.Table
	completed map[string]int
}

// runProvider drives all of one provider's tasks to completion in waves.
// It always returns a table with an entry for every task.
func (e *Engine) runProvider(
	ctx context.Context,
	logger zerolog.Logger,
	providerName string,
	records []domain.Record,
	groups []*domain.Group,
	tracker *progressTracker,
) domain.Table {
	providerLogger := logger.With().Str("provider", providerName).Logger()

	run := &providerRun{
		logger:        providerLogger,
		limiter:       e.limiters[providerName],
		settings:      e.settings[providerName].normalized(),
		tracker:       tracker,
		totalPerGroup: len(records),
		table:         make(domain.Table, len(groups)),
		completed:     make(map[string]int, len(groups)),
	}
	if run.limiter == nil {
		run.limiter = ratelimit.New(run.settings.TokensPerMinute)
	}

	tasks := buildTasks(records, groups)

	client, ok := e.registry.Client(providerName)
	if !ok {
		// Partial-provider misconfiguration must not block other
		// providers; every affected task gets an empty sentinel.
		providerLogger.Warn().Msg("provider has tasks but no configured client")
		reason := fmt.Sprintf("Provider %s is not configured", providerName)
		for _, task := range tasks {
			run.storeResult(task, domain.ErrorResult("", reason))
		}
		return run.table
	}
	run.client = client

	for _, group := range groups {
		group.Status = domain.GroupStatusRunning
	}

	batches := partitionTasks(tasks, run.settings.BatchSize)
	width := run.settings.ConcurrentBatches

	for start := 0; start < len(batches); start += width {
		if ctx.Err() != nil {
			run.fillCanceled(batches[start:])
			return run.table
		}

		end := start + width
		if end > len(batches) {
			end = len(batches)
		}

		var wg sync.WaitGroup
		for _, batch := range batches[start:end] {
			wg.Add(1)
			go func(batch []domain.Task) {
				defer wg.Done()
				run.executeBatch(ctx, batch)
			}(batch)
		}
		wg.Wait()

		if end < len(batches) && run.settings.Delay > 0 {
			if err := sleepCtx(ctx, run.settings.Delay); err != nil {
				run.fillCanceled(batches[end:])
				return run.table
			}
		}
	}

	for _, group := range groups {
		group.Status = domain.GroupStatusDone
	}
	return run.table
}

// buildTasks flattens records x groups, group-major so tasks of one group
// cluster into the same batches where counts allow. Batches still pack
// across group boundaries to keep wave width constant.
func buildTasks(records []domain.Record, groups []*domain.Group) []domain.Task {
	tasks := make([]domain.Task, 0, len(records)*len(groups))
	for _, group := range groups {
		for _, record := range records {
			tasks = append(tasks, domain.Task{Record: record, Group: group})
		}
	}
	return tasks
}

func partitionTasks(tasks []domain.Task, batchSize int) [][]domain.Task {
	if batchSize < 1 {
		batchSize = 1
	}
	batches := make([][]domain.Task, 0, (len(tasks)+batchSize-1)/batchSize)
	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batches = append(batches, tasks[start:end])
	}
	return batches
}

func (r *providerRun) storeResult(task domain.Task, res domain.Result) {
	r.mu.Lock()
	r.table.Set(task.Group.ID, task.Record.Key, res)
	r.completed[task.Group.ID]++
	done := r.completed[task.Group.ID]
	percent := int(math.Round(float64(done) / float64(r.totalPerGroup) * 100))
	task.Group.Progress = percent
	r.mu.Unlock()

	r.tracker.emit(task.Group.ID, percent)
}

func (r *providerRun) fillCanceled(batches [][]domain.Task) {
	for _, batch := range batches {
		for _, task := range batch {
			r.storeResult(task, domain.ErrorResult(task.Record.Text, ReasonCanceled))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
