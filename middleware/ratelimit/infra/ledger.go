package infra

import (
	"sync"
	"time"

	"megashipping-mock/middleware/ratelimit/domain"
)

// Ledger guarda, por API key, os instantes das requisições admitidas no
// último minuto e o contador diário.
//
// O mapa tem seu próprio mutex só para a criação preguiçosa das janelas; cada
// janela tem um mutex que cobre toda a sequência ler-podar-checar-gravar.
// Chaves diferentes são avaliadas em paralelo.
type Ledger struct {
	limits domain.Limits

	mu      sync.Mutex
	windows map[domain.Key]*rateWindow
}

type rateWindow struct {
	mu         sync.Mutex
	recent     []time.Time // ordem de inserção = ordem cronológica
	dailyCount int
	dailyStart time.Time
}

var _ domain.Ledger = (*Ledger)(nil)

func NewLedger(limits domain.Limits) *Ledger {
	return &Ledger{
		limits:  limits,
		windows: make(map[domain.Key]*rateWindow),
	}
}

func (l *Ledger) Limits() domain.Limits { return l.limits }

// Windows devolve quantas chaves já foram vistas.
func (l *Ledger) Windows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Evaluate decide se a requisição de key em now é admitida e, se for,
// registra-a. Nunca falha.
//
// A janela do minuto é checada antes da cota diária: quem estoura as duas
// recebe RateLimited.
func (l *Ledger) Evaluate(key domain.Key, now time.Time) domain.Decision {
	w := l.window(key, now)

	w.mu.Lock()
	defer w.mu.Unlock()

	// now é lido antes do lock; chamadas concorrentes podem chegar fora de
	// ordem. recent precisa continuar cronológico.
	if n := len(w.recent); n > 0 && now.Before(w.recent[n-1]) {
		now = w.recent[n-1]
	}

	if now.Sub(w.dailyStart) > l.limits.DailyWindow {
		w.dailyCount = 0
		w.dailyStart = now
	}
	w.prune(now, l.limits.Window)

	if len(w.recent) >= l.limits.PerMinute {
		return domain.Decision{
			Outcome: domain.RateLimited,
			Telemetry: domain.Telemetry{
				Remaining:      0,
				ResetInSeconds: ceilSeconds(w.recent[0].Add(l.limits.Window).Sub(now)),
				DailyQuota:     l.limits.Daily,
				DailyRemaining: nonNegative(l.limits.Daily - w.dailyCount),
			},
		}
	}

	if w.dailyCount >= l.limits.Daily {
		reset := 0
		if len(w.recent) > 0 {
			reset = ceilSeconds(w.recent[0].Add(l.limits.Window).Sub(now))
		}
		return domain.Decision{
			Outcome: domain.DailyQuotaExceeded,
			Telemetry: domain.Telemetry{
				Remaining:      nonNegative(l.limits.PerMinute - len(w.recent)),
				ResetInSeconds: reset,
				DailyQuota:     l.limits.Daily,
				DailyRemaining: 0,
			},
		}
	}

	w.recent = append(w.recent, now)
	w.dailyCount++

	return domain.Decision{
		Outcome: domain.Admitted,
		Telemetry: domain.Telemetry{
			Remaining:      nonNegative(l.limits.PerMinute - len(w.recent)),
			ResetInSeconds: ceilSeconds(w.recent[0].Add(l.limits.Window).Sub(now)),
			DailyQuota:     l.limits.Daily,
			DailyRemaining: nonNegative(l.limits.Daily - w.dailyCount),
		},
	}
}

func (l *Ledger) window(key domain.Key, now time.Time) *rateWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &rateWindow{dailyStart: now}
		l.windows[key] = w
	}
	return w
}

// prune mantém só os instantes com now - ts < window. Caller segura w.mu.
func (w *rateWindow) prune(now time.Time, window time.Duration) {
	i := 0
	for i < len(w.recent) && now.Sub(w.recent[i]) >= window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.recent, w.recent[i:])
	w.recent = w.recent[:n]
}

// ceilSeconds arredonda para cima em segundos inteiros; 0 se já passou.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
