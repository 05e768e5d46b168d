package ratelimit

import (
	"context"

	"megashipping-mock/middleware/ratelimit/domain"
)

type telemetryContextKey struct{}

// WithTelemetry anexa a telemetria de uma requisição admitida ao contexto.
func WithTelemetry(ctx context.Context, t domain.Telemetry) context.Context {
	return context.WithValue(ctx, telemetryContextKey{}, t)
}

// TelemetryFromContext devolve a telemetria anexada pelo Middleware.
func TelemetryFromContext(ctx context.Context) (domain.Telemetry, bool) {
	t, ok := ctx.Value(telemetryContextKey{}).(domain.Telemetry)
	return t, ok
}
