package domain

import (
	"context"
	"time"
)

// StatsEvent registra o resultado de uma passagem pelo gate.
//
// Outcome usa os rótulos de Label (admitted, rate_limited, invalid_api_key...).
// Cuidado com cardinalidade ao persistir Key.
type StatsEvent struct {
	Key     Key
	Outcome string

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas de admissão. É best-effort: o middleware
// apenas loga o erro e segue com a resposta.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
