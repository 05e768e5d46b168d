package ratelimit

import (
	"net/http"
	"time"

	"megashipping-mock/middleware/ratelimit/application"
	"megashipping-mock/middleware/ratelimit/domain"
	"megashipping-mock/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	OnChange       func(delta int)
}

// ConcurrencyMiddleware limita as requisições simultâneas no handler
// seguinte. Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	svc := &application.InFlight{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
		OnChange:       opts.OnChange,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				WriteError(w, http.StatusServiceUnavailable,
					NewErrorEnvelope(CodeUnavailable, "Serviço temporariamente indisponível", telemetryPtr(r)))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

func telemetryPtr(r *http.Request) *domain.Telemetry {
	if t, ok := TelemetryFromContext(r.Context()); ok {
		return &t
	}
	return nil
}
