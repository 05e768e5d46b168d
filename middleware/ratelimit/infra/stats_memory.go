package infra

import (
	"context"
	"sync"

	"megashipping-mock/middleware/ratelimit/domain"
)

// StatsSnapshot é uma cópia dos contadores, indexados pelo rótulo do
// resultado (admitted, rate_limited, ...).
type StatsSnapshot struct {
	Total   map[string]int64            `json:"total"`
	ByRoute map[string]map[string]int64 `json:"by_route"`
	ByKey   map[string]map[string]int64 `json:"by_key,omitempty"`
}

// MemoryStatsStore conta resultados do gate em memória. Alimenta o endpoint
// /stats, usado por quem está testando a integração para conferir o que o
// próprio cliente provocou.
//
// Não expira nada; vive o tempo do processo.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   map[string]int64
	byRoute map[string]map[string]int64
	byKey   map[string]map[string]int64

	trackKeys bool
	maskKey   func(string) string
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

// WithKeyMask define como a API key aparece no snapshot.
func WithKeyMask(mask func(string) string) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.maskKey = mask }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:   make(map[string]int64),
		byRoute: make(map[string]map[string]int64),
		byKey:   make(map[string]map[string]int64),
		maskKey: func(k string) string { return k },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	incr(s.byRoute, route, ev.Outcome)
	if s.trackKeys && ev.Key != "" {
		incr(s.byKey, s.maskKey(string(ev.Key)), ev.Outcome)
	}
	return nil
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := StatsSnapshot{
		Total:   make(map[string]int64, len(s.total)),
		ByRoute: copyNested(s.byRoute),
	}
	for k, v := range s.total {
		out.Total[k] = v
	}
	if s.trackKeys {
		out.ByKey = copyNested(s.byKey)
	}
	return out
}

func incr(m map[string]map[string]int64, group, outcome string) {
	c, ok := m[group]
	if !ok {
		c = make(map[string]int64)
		m[group] = c
	}
	c[outcome]++
}

func copyNested(src map[string]map[string]int64) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(src))
	for group, counters := range src {
		c := make(map[string]int64, len(counters))
		for k, v := range counters {
			c[k] = v
		}
		out[group] = c
	}
	return out
}
