package domain

import "errors"

var (
	ErrMissingCredential  = errors.New("api key is required")
	ErrInvalidCredential  = errors.New("invalid api key")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrDailyQuotaExceeded = errors.New("daily quota exceeded")
)

// AdmissionError é a falha devolvida pelo gate. Kind é um dos erros
// sentinela acima, então errors.Is funciona normalmente.
//
// Erros de credencial não carregam telemetria (HasTelemetry=false): a
// requisição nem chegou ao ledger.
type AdmissionError struct {
	Kind         error
	Telemetry    Telemetry
	HasTelemetry bool
}

func (e *AdmissionError) Error() string { return e.Kind.Error() }
func (e *AdmissionError) Unwrap() error { return e.Kind }

// TelemetryOf extrai a telemetria de um erro de admissão, se houver.
func TelemetryOf(err error) (Telemetry, bool) {
	var ae *AdmissionError
	if errors.As(err, &ae) && ae.HasTelemetry {
		return ae.Telemetry, true
	}
	return Telemetry{}, false
}

// IsCredentialError indica falhas terminais: o cliente precisa corrigir a chave.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrInvalidCredential)
}

// IsQuotaError indica falhas transitórias: o cliente deve esperar e tentar de novo.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrDailyQuotaExceeded)
}

// Label devolve o rótulo usado em estatísticas e métricas para o resultado
// de uma admissão (err == nil significa admitida).
func Label(err error) string {
	switch {
	case err == nil:
		return Admitted.String()
	case errors.Is(err, ErrMissingCredential):
		return "missing_api_key"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_api_key"
	case errors.Is(err, ErrRateLimited):
		return RateLimited.String()
	case errors.Is(err, ErrDailyQuotaExceeded):
		return DailyQuotaExceeded.String()
	default:
		return "error"
	}
}
