package engine

import (
	"context"
	"fmt"

	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/prompt"
	"github.com/lingotab/lingotab/internal/provider"
	"github.com/lingotab/lingotab/internal/ratelimit"
	"github.com/lingotab/lingotab/internal/recovery"
)

// responseTokensPerEntry is the reserve added to the request estimate for
// each expected output row.
const responseTokensPerEntry = 80

// executeBatch runs one batch. Batches whose tasks all share a group go
// out as a single combined request; mixed or single-task batches run each
// task as its own request.
func (r *providerRun) executeBatch(ctx context.Context, batch []domain.Task) {
	if len(batch) > 1 && sameGroup(batch) {
		r.executeCombined(ctx, batch)
		return
	}
	for _, task := range batch {
		if ctx.Err() != nil {
			r.storeResult(task, domain.ErrorResult(task.Record.Text, ReasonCanceled))
			continue
		}
		r.executeSingle(ctx, task)
	}
}

// executeCombined sends all tasks of the batch in one request. A failed
// request degrades to per-task singles instead of failing the whole batch;
// a parseable response is final, with sentinels for any unrecovered key.
func (r *providerRun) executeCombined(ctx context.Context, batch []domain.Task) {
	group := batch[0].Group
	records := make([]domain.Record, len(batch))
	items := make([]recovery.BatchItem, len(batch))
	for i, task := range batch {
		records[i] = task.Record
		items[i] = recovery.BatchItem{Key: task.Record.Key, SourceText: task.Record.Text}
	}

	system, user := prompt.Render(group, records)
	raw, err := r.request(ctx, group, system, user, len(batch))
	if err == nil {
		results := recovery.ParseBatch(raw, items)
		for _, task := range batch {
			r.storeResult(task, results[task.Record.Key])
		}
		return
	}

	r.logger.Warn().
		Err(err).
		Str("group", group.ID).
		Int("tasks", len(batch)).
		Msg("batch request failed, degrading to per-task requests")

	for _, task := range batch {
		if ctx.Err() != nil {
			r.storeResult(task, domain.ErrorResult(task.Record.Text, ReasonCanceled))
			continue
		}
		r.executeSingle(ctx, task)
	}
}

func (r *providerRun) executeSingle(ctx context.Context, task domain.Task) {
	system, user := prompt.Render(task.Group, []domain.Record{task.Record})
	raw, err := r.request(ctx, task.Group, system, user, 1)
	if err != nil {
		r.storeResult(task, domain.ErrorResult(task.Record.Text, fmt.Sprintf("Request failed: %v", err)))
		return
	}
	r.storeResult(task, recovery.ParseSingle(raw, task.Record.Key, task.Record.Text, task.Group.Name))
}

// request performs one rate-limited provider call. It waits out the token
// budget before the first attempt, records usage optimistically per
// attempt, and retries only rate-limit errors, honoring any server-stated
// retry delay when it exceeds the backoff.
func (r *providerRun) request(ctx context.Context, group *domain.Group, system, user string, entries int) (string, error) {
	estimate := ratelimit.EstimateTokens(system, user, entries*responseTokensPerEntry)
	if wait := r.limiter.RequiredDelay(estimate); wait > 0 {
		r.logger.Debug().
			Dur("wait", wait).
			Int("tokens", estimate).
			Msg("token budget exhausted, waiting")
		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r.limiter.RecordUsage(estimate)
		raw, err := r.client.Translate(ctx, provider.Request{
			System: system,
			User:   user,
			Model:  group.Model,
		})
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !provider.IsRateLimit(err) || attempt == maxAttempts {
			return "", err
		}

		delay := backoffDelay(attempt)
		if suggested := provider.SuggestedRetryAfter(err); suggested > delay {
			delay = suggested
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("rate limited, backing off")
		if err := sleepCtx(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func sameGroup(batch []domain.Task) bool {
	for _, task := range batch[1:] {
		if task.Group != batch[0].Group {
			return false
		}
	}
	return true
}
