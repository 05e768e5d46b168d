package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"megashipping-mock/internal/quote"
	"megashipping-mock/middleware/ratelimit"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/stats", s.statsHandler)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Method(http.MethodGet, "/shipping/quote", s.quoteChain())
}

// quoteChain: flood guard, admissão, limite em voo e cotação, nessa ordem.
func (s *Server) quoteChain() http.Handler {
	var h http.Handler = quote.NewHandler(s.calc,
		quote.WithDelayer(s.delay),
		quote.WithLogger(s.logger.Named("quote")),
		quote.WithQuoteObserver(s.metrics.ObserveQuote),
	)

	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            s.cfg.Concurrency.Max,
		AcquireTimeout: s.cfg.Concurrency.AcquireTimeout,
		OnChange:       s.metrics.InFlightChanged,
	})(h)

	h = ratelimit.Middleware(ratelimit.Options{
		Gate:                s.gate,
		Stats:               s.sink,
		PerMinute:           s.cfg.Limits.PerMinute,
		AddRateLimitHeaders: s.cfg.Server.RateLimitHeaders,
		Logger:              s.logger.Named("quota"),
		OnDecision:          s.metrics.ObserveAdmission,
	})(h)

	if s.flood != nil {
		h = ratelimit.FloodGuard(ratelimit.FloodOptions{
			Store:              s.flood,
			TrustXForwardedFor: s.cfg.Flood.TrustXFF,
			Logger:             s.logger.Named("flood"),
			OnReject:           s.metrics.ObserveFloodRejection,
		})(h)
	}
	return h
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	ratelimit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	ratelimit.WriteJSON(w, http.StatusOK, s.stats.Snapshot())
}
