package ratelimit

import (
	"encoding/json"
	"errors"
	"net/http"

	"megashipping-mock/middleware/ratelimit/domain"
)

// Códigos de erro expostos no envelope.
const (
	CodeMissingAPIKey      = "MISSING_API_KEY"
	CodeInvalidAPIKey      = "INVALID_API_KEY"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeDailyQuotaExceeded = "DAILY_QUOTA_EXCEEDED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorEnvelope é o corpo JSON de toda resposta de erro da API.
type ErrorEnvelope struct {
	Status    string            `json:"status"`
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	RateLimit *domain.Telemetry `json:"rate_limit,omitempty"`
}

func NewErrorEnvelope(code, message string, rl *domain.Telemetry) ErrorEnvelope {
	return ErrorEnvelope{Status: "error", ErrorCode: code, Message: message, RateLimit: rl}
}

// WriteJSON escreve v como JSON com o status informado. O corpo é
// serializado antes do WriteHeader: se falhar, a resposta vira 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(NewErrorEnvelope(CodeInternal, "Internal error", nil))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func WriteError(w http.ResponseWriter, status int, env ErrorEnvelope) {
	WriteJSON(w, status, env)
}

// admissionResponse traduz um erro do Gate em status HTTP e envelope.
func admissionResponse(err error) (int, ErrorEnvelope) {
	var rl *domain.Telemetry
	if t, ok := domain.TelemetryOf(err); ok {
		rl = &t
	}

	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusUnauthorized, NewErrorEnvelope(CodeMissingAPIKey, "API key is required", nil)
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized, NewErrorEnvelope(CodeInvalidAPIKey, "Invalid API key", nil)
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, NewErrorEnvelope(CodeRateLimitExceeded, "Limite de requisições excedido", rl)
	case errors.Is(err, domain.ErrDailyQuotaExceeded):
		return http.StatusTooManyRequests, NewErrorEnvelope(CodeDailyQuotaExceeded, "Cota diária excedida", rl)
	default:
		return http.StatusInternalServerError, NewErrorEnvelope(CodeInternal, "Internal error", nil)
	}
}
