package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megashipping-mock/internal/config"
	"megashipping-mock/internal/quote"
	"megashipping-mock/middleware/ratelimit/domain"
)

const validKey = config.DefaultAPIKey

const quoteQuery = "origin=01310100&destination=30140071&weight=2.5&length=30&width=20&height=10"

type fixedIDs struct{}

func (fixedIDs) IntN(int) int { return 123 }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.NewLoader("").Load()
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{
		WithClock(clock),
		WithDelayer(quote.NoDelay{}),
		WithIDSource(fixedIDs{}),
	}, opts...)
	return New(cfg, nil, opts...), clock
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	w := get(t, s.Handler(), "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, w))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestQuote_CredentialErrors(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	w := get(t, s.Handler(), "/shipping/quote?"+quoteQuery)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, "MISSING_API_KEY", body["error_code"])
	assert.Equal(t, "API key is required", body["message"])
	assert.NotContains(t, body, "rate_limit")

	w = get(t, s.Handler(), "/shipping/quote?api_key=MS-WRONG&"+quoteQuery)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body = decode(t, w)
	assert.Equal(t, "INVALID_API_KEY", body["error_code"])
	assert.NotContains(t, body, "rate_limit")

	assert.Equal(t, 0, s.ledger.Windows())
}

func TestQuote_MinuteLimitScenario(t *testing.T) {
	s, clock := newTestServer(t, loadConfig(t))

	// t=0,2,4,6,8
	for i := 0; i < 5; i++ {
		w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)

		body := decode(t, w)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "MS-100000123", body["quote_id"])
		rl := body["rate_limit"].(map[string]any)
		assert.Equal(t, float64(4-i), rl["remaining"])
		assert.Equal(t, float64(99-i), rl["daily_remaining"])
		assert.Equal(t, "100", w.Header().Get("X-RateLimit-Daily-Quota"))

		clock.Advance(2 * time.Second)
	}

	clock.Advance(1 * time.Second) // t=11
	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "49", w.Header().Get("Retry-After"))
	body := decode(t, w)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["error_code"])
	assert.Equal(t, "Limite de requisições excedido", body["message"])
	assert.Equal(t, map[string]any{
		"remaining":        0.0,
		"reset_in_seconds": 49.0,
		"daily_quota":      100.0,
		"daily_remaining":  95.0,
	}, body["rate_limit"])

	// t=60: a primeira saiu da janela
	clock.Advance(49 * time.Second)
	w = get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuote_DailyQuota(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Limits.Daily = 3
	s, clock := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
		require.Equal(t, http.StatusOK, w.Code)
		clock.Advance(61 * time.Second)
	}

	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DAILY_QUOTA_EXCEEDED", body["error_code"])
	assert.Equal(t, "Cota diária excedida", body["message"])
	assert.Empty(t, w.Header().Get("Retry-After"))

	clock.Advance(24 * time.Hour)
	w = get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuote_MissingParametersConsumesQuota(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&origin=01310100")

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "MISSING_PARAMETERS", body["error_code"])
	rl := body["rate_limit"].(map[string]any)
	assert.Equal(t, 4.0, rl["remaining"])
}

func TestQuote_RegionNotAvailable(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+
		"&origin=01310100&destination=69000000&weight=1&length=1&width=1&height=1")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "region_not_available", body["status"])
	assert.Equal(t, "Região de entrega não atendida por nossos serviços", body["message"])
}

func TestQuote_HeaderKeyAndCORS(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	r := httptest.NewRequest(http.MethodGet, "/shipping/quote?"+quoteQuery+"&service_type=all", nil)
	r.Header.Set("X-Api-Key", validKey)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	body := decode(t, w)
	assert.Len(t, body["services"], 2)
}

func TestStatsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	get(t, s.Handler(), "/shipping/quote?"+quoteQuery)
	get(t, s.Handler(), "/shipping/quote?api_key=nope&"+quoteQuery)
	get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)

	w := get(t, s.Handler(), "/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Total map[string]int64            `json:"total"`
		ByKey map[string]map[string]int64 `json:"by_key"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.Total["missing_api_key"])
	assert.Equal(t, int64(1), snap.Total["invalid_api_key"])
	assert.Equal(t, int64(1), snap.Total["admitted"])
	assert.Equal(t, int64(1), snap.ByKey["****E90F"]["admitted"])

	w = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	text, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(text), `megashipping_admission_decisions_total{outcome="admitted"} 1`))
	assert.True(t, strings.Contains(string(text), `megashipping_quotes_total{status="success"} 1`))
	assert.True(t, strings.Contains(string(text), `route="/shipping/quote"`))
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	w := get(t, s.Handler(), "/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["error_code"])
}

func TestFloodGuard(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Flood.Enabled = true
	cfg.Flood.RPS = 0.01
	cfg.Flood.Burst = 1
	s, _ := newTestServer(t, cfg)

	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "TOO_MANY_REQUESTS", body["error_code"])
	assert.NotContains(t, body, "rate_limit")

	// a rejeição do flood guard não gasta cota
	assert.Equal(t, int64(1), s.Stats().Total[domain.Admitted.String()])
}

func TestReloadKeys(t *testing.T) {
	s, _ := newTestServer(t, loadConfig(t))

	s.ReloadKeys([]string{"MS-NEWKEY0001"})

	w := get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(t, s.Handler(), "/shipping/quote?api_key=MS-NEWKEY0001&"+quoteQuery)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisStats(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := loadConfig(t)
	cfg.Stats.Redis.Enabled = true
	cfg.Stats.Redis.Addr = mr.Addr()
	s, _ := newTestServer(t, cfg, WithRedisStats(rdb))

	get(t, s.Handler(), "/shipping/quote?api_key="+validKey+"&"+quoteQuery)

	assert.Equal(t, "1", mr.HGet("megashipping:stats:total", "admitted"))
	assert.Equal(t, int64(1), s.Stats().Total["admitted"])
}

func TestServer_ShutdownBeforeStartStopsListener(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	s, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestServer_ConcurrentStartAndShutdown(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	s, _ := newTestServer(t, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
