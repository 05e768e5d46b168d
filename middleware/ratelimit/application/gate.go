package application

import (
	"megashipping-mock/middleware/ratelimit/domain"
)

// Gate autentica a API key e consulta o ledger. Não sabe nada sobre HTTP:
// devolve a telemetria em caso de sucesso ou um *domain.AdmissionError.
type Gate struct {
	ledger domain.Ledger
	keys   *KeySet
	clock  domain.Clock
}

func NewGate(ledger domain.Ledger, keys *KeySet, clock domain.Clock) *Gate {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Gate{ledger: ledger, keys: keys, clock: clock}
}

// Authorize valida a chave apresentada e, se ela for conhecida, faz
// exatamente uma avaliação no ledger. Chaves vazias ou desconhecidas nunca
// chegam ao ledger.
func (g *Gate) Authorize(presented string) (domain.Telemetry, error) {
	if presented == "" {
		return domain.Telemetry{}, &domain.AdmissionError{Kind: domain.ErrMissingCredential}
	}
	if g.keys == nil || !g.keys.Contains(presented) {
		return domain.Telemetry{}, &domain.AdmissionError{Kind: domain.ErrInvalidCredential}
	}

	dec := g.ledger.Evaluate(domain.Key(presented), g.clock.Now())
	switch dec.Outcome {
	case domain.Admitted:
		return dec.Telemetry, nil
	case domain.RateLimited:
		return dec.Telemetry, &domain.AdmissionError{Kind: domain.ErrRateLimited, Telemetry: dec.Telemetry, HasTelemetry: true}
	default:
		return dec.Telemetry, &domain.AdmissionError{Kind: domain.ErrDailyQuotaExceeded, Telemetry: dec.Telemetry, HasTelemetry: true}
	}
}
