package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(budget int) (*Limiter, *time.Time) {
	l := New(budget)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	got := EstimateTokens("12345678", "1234", 50)
	if got != 53 {
		t.Fatalf("unexpected estimate: got %d want 53", got)
	}
}

func TestCanProceedAtBudgetBoundary(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(100)
	if !l.CanProceed(100) {
		t.Fatalf("expected full budget to be available")
	}

	l.RecordUsage(100)
	if l.CanProceed(1) {
		t.Fatalf("expected exhausted budget to reject")
	}
	if l.UsagePercent() != 100 {
		t.Fatalf("unexpected usage percent: got %d want 100", l.UsagePercent())
	}
}

func TestRequiredDelayConservation(t *testing.T) {
	t.Parallel()

	l, now := newTestLimiter(100)
	l.RecordUsage(100)

	delay := l.RequiredDelay(1)
	if delay <= 0 {
		t.Fatalf("expected positive delay, got %v", delay)
	}

	*now = now.Add(delay + time.Millisecond)
	if !l.CanProceed(1) {
		t.Fatalf("expected request to fit after waiting %v", delay)
	}
}

func TestRequiredDelayWalksOldestFirst(t *testing.T) {
	t.Parallel()

	l, now := newTestLimiter(100)
	l.RecordUsage(40)
	*now = now.Add(10 * time.Second)
	l.RecordUsage(60)
	*now = now.Add(10 * time.Second)

	// 30 tokens need the first entry (40 tokens, recorded 20s ago) to age
	// out: 60s - 20s = 40s.
	delay := l.RequiredDelay(30)
	if delay != 40*time.Second {
		t.Fatalf("unexpected delay: got %v want 40s", delay)
	}

	// 70 tokens need both entries gone; the second expires 50s from now.
	delay = l.RequiredDelay(70)
	if delay != 50*time.Second {
		t.Fatalf("unexpected delay: got %v want 50s", delay)
	}
}

func TestOversizedRequestWaitsFullWindow(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(100)
	if l.RequiredDelay(500) != Window {
		t.Fatalf("expected full-window delay for oversized request")
	}
}

func TestEntriesAgeOut(t *testing.T) {
	t.Parallel()

	l, now := newTestLimiter(100)
	l.RecordUsage(100)
	*now = now.Add(Window + time.Second)

	if !l.CanProceed(100) {
		t.Fatalf("expected aged-out usage to free the budget")
	}
	if l.UsagePercent() != 0 {
		t.Fatalf("unexpected usage percent: got %d want 0", l.UsagePercent())
	}
}
