// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestReviewLimiter(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(testNow)
	l := NewReviewLimiter(3, clock)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("alice"); !ok {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	ok, wait := l.Allow("alice")
	if ok || !near(wait, 20*time.Second) {
		t.Fatalf("Allow() = %v, %v; want denied for 20s", ok, wait)
	}
	// A denied attempt must not push the next token further out.
	if _, again := l.Allow("alice"); !near(again, 20*time.Second) {
		t.Errorf("second denial wait = %v, want 20s", again)
	}
	if ok, _ := l.Allow("bob"); !ok {
		t.Error("bob limited by alice's bucket")
	}

	clock.Advance(20 * time.Second)
	if ok, _ := l.Allow("alice"); !ok {
		t.Error("alice still denied after refill")
	}
}

func TestReviewLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := NewReviewLimiter(0, nil)
	if l != nil {
		t.Fatalf("NewReviewLimiter(0) = %v, want nil", l)
	}
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("anyone"); !ok {
			t.Fatal("nil limiter denied a request")
		}
	}
}

func TestReviewLimiterSweep(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(testNow)
	l := NewReviewLimiter(5, clock)
	l.Allow("idle")
	clock.Advance(limiterIdleTTL - limiterSweepInterval)
	l.Allow("active")
	clock.Advance(2 * limiterSweepInterval)

	l.sweep()
	if n := l.size(); n != 1 {
		t.Errorf("limiters after sweep = %d, want only the active one", n)
	}
	if ok, _ := l.Allow("idle"); !ok {
		t.Error("swept reviewer should start with a full bucket")
	}
}

func TestReviewLimiterServeStops(t *testing.T) {
	t.Parallel()

	l := NewReviewLimiter(5, clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func near(got, want time.Duration) bool {
	diff := got - want
	return diff > -time.Millisecond && diff < time.Millisecond
}
