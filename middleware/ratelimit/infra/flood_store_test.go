package infra

import (
	"testing"
	"time"

	"megashipping-mock/middleware/ratelimit/domain"
)

func TestFloodStore_SameIPSharesLimiter(t *testing.T) {
	s := NewFloodStore(10, 1)

	l1 := s.Get(domain.Key("10.0.0.1"))
	l2 := s.Get(domain.Key("10.0.0.1"))
	if l1 != l2 {
		t.Fatalf("expected same limiter for same ip")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestFloodStore_BurstOneRejectsImmediateSecondCall(t *testing.T) {
	s := NewFloodStore(0.02, 1)

	lim := s.Get(domain.Key("10.0.0.1"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
	if !s.Get(domain.Key("10.0.0.2")).Allow() {
		t.Fatalf("expected another ip to have its own bucket")
	}
}

func TestFloodStore_CleanupRemovesIdleEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewFloodStore(10, 1,
		WithIdleTTL(time.Minute),
		WithCleanupEvery(0),
		WithFloodClock(func() time.Time { return now }),
	)

	before := s.Get(domain.Key("10.0.0.1"))
	now = now.Add(2 * time.Minute)
	s.Get(domain.Key("10.0.0.2"))

	if removed := s.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 idle entry removed, got %d", removed)
	}

	after := s.Get(domain.Key("10.0.0.1"))
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}
