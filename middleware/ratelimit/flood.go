package ratelimit

import (
	"net/http"

	"go.uber.org/zap"

	"megashipping-mock/middleware/ratelimit/domain"
)

type FloodOptions struct {
	Store              domain.LimiterStore
	TrustXForwardedFor bool
	KeyFn              KeyFunc
	// RetryAfterSeconds vai no header Retry-After da rejeição (padrão 1).
	RetryAfterSeconds int
	Logger            *zap.Logger
	OnReject          func()
}

// FloodGuard rejeita rajadas por IP antes da autenticação. Não consulta o
// ledger e a resposta não traz bloco rate_limit.
func FloodGuard(opts FloodOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIPFunc(opts.TrustXForwardedFor)
	}
	if opts.RetryAfterSeconds <= 0 {
		opts.RetryAfterSeconds = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := opts.KeyFn(r)
			if lim := opts.Store.Get(domain.Key(ip)); lim != nil && !lim.Allow() {
				opts.Logger.Debug("flood guard rejected request", zap.String("client_ip", ip))
				if opts.OnReject != nil {
					opts.OnReject()
				}
				w.Header().Set("Retry-After", formatInt(opts.RetryAfterSeconds))
				WriteError(w, http.StatusTooManyRequests,
					NewErrorEnvelope(CodeTooManyRequests, "Too many requests from this client", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
