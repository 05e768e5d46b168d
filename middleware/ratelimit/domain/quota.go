package domain

import (
	"errors"
	"time"
)

// Key identifica o chamador (API key). A comparação é sempre exata.
type Key string

// Outcome é o resultado de uma avaliação do ledger.
type Outcome int

const (
	Admitted Outcome = iota
	RateLimited
	DailyQuotaExceeded
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case RateLimited:
		return "rate_limited"
	case DailyQuotaExceeded:
		return "daily_quota_exceeded"
	default:
		return "unknown"
	}
}

// Telemetry é o bloco rate_limit devolvido ao cliente para que ele saiba
// quanto ainda pode chamar e quando tentar de novo.
type Telemetry struct {
	Remaining      int `json:"remaining"`
	ResetInSeconds int `json:"reset_in_seconds"`
	DailyQuota     int `json:"daily_quota"`
	DailyRemaining int `json:"daily_remaining"`
}

type Decision struct {
	Outcome   Outcome
	Telemetry Telemetry
}

func (d Decision) Allowed() bool { return d.Outcome == Admitted }

// Limits são os tetos aplicados a cada API key.
type Limits struct {
	// PerMinute é o máximo de requisições admitidas dentro de Window.
	PerMinute int
	// Daily é o máximo de requisições admitidas dentro de DailyWindow,
	// contado a partir do primeiro uso (janela móvel, não meia-noite).
	Daily       int
	Window      time.Duration
	DailyWindow time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		PerMinute:   5,
		Daily:       100,
		Window:      time.Minute,
		DailyWindow: 24 * time.Hour,
	}
}

func (l Limits) Validate() error {
	switch {
	case l.PerMinute <= 0:
		return errors.New("per-minute limit must be > 0")
	case l.Daily <= 0:
		return errors.New("daily limit must be > 0")
	case l.Window <= 0:
		return errors.New("window must be > 0")
	case l.DailyWindow <= 0:
		return errors.New("daily window must be > 0")
	}
	return nil
}

// Ledger avalia e registra, de forma atômica por chave, uma tentativa de
// requisição. Só uma admissão altera o estado; rejeições apenas leem.
type Ledger interface {
	Evaluate(key Key, now time.Time) Decision
}

type Clock interface {
	Now() time.Time
}

// ClockFunc adapta uma função para Clock (útil em testes).
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock usa o relógio do processo.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Masked mostra só os 4 últimos caracteres da chave, para logs e /stats.
func (k Key) Masked() string {
	const visible = 4
	if k == "" {
		return ""
	}
	if len(k) <= visible {
		return "****"
	}
	return "****" + string(k[len(k)-visible:])
}
