// Package ratelimit tracks per-provider token spend over a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the sliding-window length the token budget applies to.
const Window = time.Minute

// EstimateTokens approximates the token cost of one request as characters
// divided by four plus the expected response size. It is not a tokenizer;
// callers must tolerate under- and over-estimation.
func EstimateTokens(systemPrompt, userPrompt string, expectedResponseTokens int) int {
	promptTokens := (len(systemPrompt) + len(userPrompt)) / 4
	return promptTokens + expectedResponseTokens
}

type usageEntry struct {
	at     time.Time
	tokens int
}

// Limiter enforces a tokens-per-minute budget for one provider. It is safe
// for concurrent use by all in-flight requests for that provider.
type Limiter struct {
	mu      sync.Mutex
	budget  int
	entries []usageEntry

	now func() time.Time
}

func New(tokensPerMinute int) *Limiter {
	if tokensPerMinute < 1 {
		tokensPerMinute = 1
	}
	return &Limiter{
		budget: tokensPerMinute,
		now:    time.Now,
	}
}

// CanProceed reports whether a request costing tokens fits the remaining
// windowed budget right now.
func (l *Limiter) CanProceed(tokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	return l.windowedUsage()+tokens <= l.budget
}

// RequiredDelay returns how long the caller must wait before a request
// costing tokens fits the budget. It walks the usage log oldest-first,
// accumulating freed tokens until the deficit is covered, and returns the
// time until that entry ages out of the window.
func (l *Limiter) RequiredDelay(tokens int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	used := l.windowedUsage()
	if used+tokens <= l.budget {
		return 0
	}

	deficit := used + tokens - l.budget
	freed := 0
	for _, entry := range l.entries {
		freed += entry.tokens
		if freed >= deficit {
			delay := entry.at.Add(Window).Sub(now)
			if delay < 0 {
				return 0
			}
			return delay
		}
	}

	// The request alone exceeds the budget; waiting a full window is the
	// best the limiter can offer.
	return Window
}

// RecordUsage appends a usage entry at "now". Callers invoke this
// immediately after dispatching a request, whether or not the response
// later errors.
func (l *Limiter) RecordUsage(tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, usageEntry{at: l.now(), tokens: tokens})
}

// UsagePercent reports current windowed usage as 0..100. Diagnostic only.
func (l *Limiter) UsagePercent() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	percent := l.windowedUsage() * 100 / l.budget
	if percent > 100 {
		percent = 100
	}
	return percent
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-Window)
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.at.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	l.entries = kept
}

func (l *Limiter) windowedUsage() int {
	total := 0
	for _, entry := range l.entries {
		total += entry.tokens
	}
	return total
}
