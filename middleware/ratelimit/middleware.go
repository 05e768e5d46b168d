package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"megashipping-mock/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// Authorizer é o contrato do application.Gate visto pelo middleware.
type Authorizer interface {
	Authorize(presented string) (domain.Telemetry, error)
}

type Options struct {
	Gate  Authorizer
	Stats domain.StatsStore
	KeyFn KeyFunc
	// KeyQueryParam e KeyHeader alimentam o KeyFn padrão (query primeiro).
	KeyQueryParam string
	KeyHeader     string
	// PerMinute só aparece no header X-RateLimit-Limit.
	PerMinute           int
	AddRateLimitHeaders bool
	Logger              *zap.Logger
	// OnDecision recebe o rótulo de cada resultado (métricas).
	OnDecision func(outcome string)
	Now        func() time.Time
}

// APIKeyFunc lê a chave do parâmetro de query e, se ausente, do header.
// O valor da query é usado como veio; o do header tem espaços removidos.
func APIKeyFunc(queryParam, header string) KeyFunc {
	return func(r *http.Request) string {
		if queryParam != "" {
			if v := r.URL.Query().Get(queryParam); v != "" {
				return v
			}
		}
		if header != "" {
			return strings.TrimSpace(r.Header.Get(header))
		}
		return ""
	}
}

// ClientIPFunc identifica o cliente pelo IP (primeiro salto do
// X-Forwarded-For quando confiável, senão RemoteAddr).
func ClientIPFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Middleware aplica o Gate a cada requisição. Rejeições respondem 401/429
// com o envelope de erro; admissões seguem com a telemetria no contexto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyQueryParam == "" {
		opts.KeyQueryParam = "api_key"
	}
	if opts.KeyHeader == "" {
		opts.KeyHeader = "X-Api-Key"
	}
	if opts.KeyFn == nil {
		opts.KeyFn = APIKeyFunc(opts.KeyQueryParam, opts.KeyHeader)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			tel, err := opts.Gate.Authorize(string(key))
			outcome := domain.Label(err)

			if opts.OnDecision != nil {
				opts.OnDecision(outcome)
			}
			if opts.Stats != nil {
				statsKey := key
				if domain.IsCredentialError(err) {
					statsKey = ""
				}
				if serr := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     statsKey,
					Outcome: outcome,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      opts.Now(),
				}); serr != nil {
					opts.Logger.Warn("failed to record admission stats", zap.Error(serr))
				}
			}

			if err != nil {
				status, env := admissionResponse(err)
				opts.Logger.Debug("request rejected",
					zap.String("outcome", outcome),
					zap.String("api_key", key.Masked()),
					zap.Int("status", status))

				if env.RateLimit != nil {
					if opts.AddRateLimitHeaders {
						setRateLimitHeaders(w, opts.PerMinute, *env.RateLimit)
					}
					if env.RateLimit.ResetInSeconds > 0 {
						w.Header().Set("Retry-After", formatInt(env.RateLimit.ResetInSeconds))
					}
				}
				WriteError(w, status, env)
				return
			}

			if opts.AddRateLimitHeaders {
				setRateLimitHeaders(w, opts.PerMinute, tel)
			}
			next.ServeHTTP(w, r.WithContext(WithTelemetry(r.Context(), tel)))
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, perMinute int, t domain.Telemetry) {
	h := w.Header()
	if perMinute > 0 {
		h.Set("X-RateLimit-Limit", formatInt(perMinute))
	}
	h.Set("X-RateLimit-Remaining", formatInt(t.Remaining))
	h.Set("X-RateLimit-Reset", formatInt(t.ResetInSeconds))
	h.Set("X-RateLimit-Daily-Quota", formatInt(t.DailyQuota))
	h.Set("X-RateLimit-Daily-Remaining", formatInt(t.DailyRemaining))
}
