package domain

import "context"

// Limiter decide se uma ação é permitida agora. Usado pelo flood guard por
// IP, que roda antes da autenticação e não toca no ledger.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (aqui, IP do cliente).
type LimiterStore interface {
	Get(Key) Limiter
}

// SlotPool representa a capacidade de requisições simultâneas em voo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. O release
// devolvido deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
