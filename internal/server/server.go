package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"megashipping-mock/internal/config"
	"megashipping-mock/internal/observability"
	"megashipping-mock/internal/quote"
	"megashipping-mock/middleware/ratelimit"
	"megashipping-mock/middleware/ratelimit/application"
	"megashipping-mock/middleware/ratelimit/domain"
	"megashipping-mock/middleware/ratelimit/infra"
)

// Server é o mock HTTP completo: gate de cota, cotação e endpoints de
// diagnóstico.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    *config.Config
	logger *zap.Logger

	keys    *application.KeySet
	ledger  *infra.Ledger
	gate    *application.Gate
	flood   *infra.FloodStore
	stats   *infra.MemoryStatsStore
	sink    domain.StatsStore
	metrics *observability.Metrics
	calc    *quote.Calculator
	delay   quote.Delayer
}

type Option func(*Server)

// WithRedisStats grava as estatísticas também no Redis.
func WithRedisStats(rdb redis.Cmdable) Option {
	return func(s *Server) {
		if rdb == nil {
			return
		}
		rc := s.cfg.Stats.Redis
		s.sink = infra.MultiStatsStore{
			s.stats,
			infra.NewRedisStatsStore(rdb,
				infra.WithStatsPrefix(rc.Prefix),
				infra.WithStatsTTL(rc.TTL),
				infra.WithStatsTrackKeys(s.cfg.Stats.TrackKeys),
			),
		}
	}
}

func WithClock(c domain.Clock) Option {
	return func(s *Server) { s.gate = application.NewGate(s.ledger, s.keys, c) }
}

func WithDelayer(d quote.Delayer) Option {
	return func(s *Server) { s.delay = d }
}

func WithIDSource(src quote.IntN) Option {
	return func(s *Server) { s.calc = quote.NewCalculator(quote.WithIDSource(src)) }
}

// New monta o servidor a partir de uma configuração já validada.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		keys:    application.NewKeySet(cfg.Auth.APIKeys),
		ledger:  infra.NewLedger(cfg.Limits.Domain()),
		metrics: observability.NewMetrics(),
		calc:    quote.NewCalculator(),
		delay:   quote.RandomDelay{Min: cfg.Delay.Min, Max: cfg.Delay.Max},
	}
	s.gate = application.NewGate(s.ledger, s.keys, nil)
	s.stats = infra.NewMemoryStatsStore(
		infra.WithTrackKeys(cfg.Stats.TrackKeys),
		infra.WithKeyMask(func(k string) string { return domain.Key(k).Masked() }),
	)
	s.sink = s.stats
	if cfg.Flood.Enabled {
		s.flood = infra.NewFloodStore(cfg.Flood.RPS, cfg.Flood.Burst,
			infra.WithIdleTTL(cfg.Flood.IdleTTL),
			infra.WithCleanupEvery(cfg.Flood.CleanupEvery),
		)
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.newRouter()

	sc := cfg.Server
	s.server = &http.Server{
		Addr:              sc.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       sc.ReadTimeout,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       sc.IdleTimeout,
	}
	return s
}

func (s *Server) newRouter() *chi.Mux {
	r := chi.NewRouter()

	// Só confia em X-Forwarded-For/X-Real-IP quando configurado.
	if s.cfg.Flood.TrustXFF {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(AccessLog(s.logger.Named("http"), s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Api-Key", RequestIDHeader},
		ExposedHeaders: []string{
			"Retry-After", RequestIDHeader,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
			"X-RateLimit-Daily-Quota", "X-RateLimit-Daily-Remaining",
		},
		MaxAge: 300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		ratelimit.WriteError(w, http.StatusNotFound,
			ratelimit.NewErrorEnvelope("NOT_FOUND", "The requested resource was not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ratelimit.WriteError(w, http.StatusMethodNotAllowed,
			ratelimit.NewErrorEnvelope("METHOD_NOT_ALLOWED", "The requested method is not allowed for this resource", nil))
	})

	s.registerRoutes(r)
	return r
}

// Start sobe o listener e bloqueia até Shutdown.
func (s *Server) Start() error {
	s.logger.Info("MegaShipping API mock listening",
		zap.String("addr", s.server.Addr),
		zap.Int("api_keys", s.keys.Len()),
		zap.Int("per_minute", s.cfg.Limits.PerMinute),
		zap.Int("daily", s.cfg.Limits.Daily),
		zap.Bool("flood_guard", s.flood != nil),
		zap.Int("concurrency_max", s.cfg.Concurrency.Max))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartBackground liga as rotinas que vivem até ctx encerrar (limpeza do
// flood guard).
func (s *Server) StartBackground(ctx context.Context) {
	if s.flood != nil {
		s.flood.StartJanitor(ctx)
	}
}

// Shutdown pode vir antes de Start; nesse caso Start retorna nil sem escutar.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler expõe o roteador para testes.
func (s *Server) Handler() http.Handler { return s.router }

// ReloadKeys troca o conjunto de chaves válidas sem reiniciar. Janelas já
// criadas no ledger continuam lá.
func (s *Server) ReloadKeys(keys []string) {
	s.keys.Replace(keys)
	s.logger.Info("api keys reloaded", zap.Int("api_keys", s.keys.Len()))
}

func (s *Server) Stats() infra.StatsSnapshot { return s.stats.Snapshot() }
