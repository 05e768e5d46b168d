package infra

import (
	"context"
	"sync"
	"time"

	"megashipping-mock/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// FloodStore mantém um token bucket (x/time/rate) por IP de cliente, com
// limpeza periódica dos IPs ociosos.
//
// Ele protege o processo de rajadas antes da autenticação e é independente
// do Ledger: nada aqui conta contra a cota da API key.
type FloodStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*floodEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type floodEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type FloodOption func(*FloodStore)

func WithIdleTTL(d time.Duration) FloodOption {
	return func(s *FloodStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) FloodOption {
	return func(s *FloodStore) { s.cleanupEvery = d }
}

// WithFloodClock troca o relógio usado para lastSeen (testes).
func WithFloodClock(now func() time.Time) FloodOption {
	return func(s *FloodStore) { s.now = now }
}

func NewFloodStore(rps float64, burst int, opts ...FloodOption) *FloodStore {
	s := &FloodStore{
		entries:      make(map[domain.Key]*floodEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FloodStore) RPS() float64 { return float64(s.rps) }
func (s *FloodStore) Burst() int   { return s.burst }

func (s *FloodStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get implementa domain.LimiterStore.
func (s *FloodStore) Get(key domain.Key) domain.Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &floodEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup remove IPs sem tráfego há mais de idleTTL e devolve quantos saíram.
func (s *FloodStore) Cleanup() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor limpa IPs ociosos periodicamente até o ctx encerrar.
func (s *FloodStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
