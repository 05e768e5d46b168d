package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megashipping-mock/middleware/ratelimit"
	"megashipping-mock/middleware/ratelimit/domain"
)

type fixedRand int

func (f fixedRand) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

var today = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func newCalc(n int) *Calculator {
	return NewCalculator(WithIDSource(fixedRand(n)), WithNow(func() time.Time { return today }))
}

func TestRegionAvailable(t *testing.T) {
	for _, cep := range []string{"01310100", "13000000", "30140071", "40000000", "80000000"} {
		assert.True(t, RegionAvailable(cep), cep)
	}
	for _, cep := range []string{"20000000", "50000000", "69000000", "70000000", "90000000", ""} {
		assert.False(t, RegionAvailable(cep), cep)
	}
}

func TestPrices(t *testing.T) {
	// volume 30*20*10/1000 = 6 => 3 + 25 + 20 = 48
	std, exp := Prices(Request{Weight: 2.5, Length: 30, Width: 20, Height: 10})
	assert.Equal(t, 48.0, std)
	assert.Equal(t, 76.8, exp)

	std, exp = Prices(Request{Weight: 0.333, Length: 10, Width: 10, Height: 10})
	assert.Equal(t, 23.83, std)
	assert.Equal(t, 38.13, exp)
}

func TestNewQuoteID_Bounds(t *testing.T) {
	assert.Equal(t, "MS-100000000", NewQuoteID(fixedRand(0)))
	assert.Equal(t, "MS-999999999", NewQuoteID(fixedRand(1<<40)))
}

func TestCalculator_StandardOnly(t *testing.T) {
	res := newCalc(42).Quote(Request{Destination: "01310100", Weight: 1, Length: 10, Width: 10, Height: 10})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "MS-100000042", res.QuoteID)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "MS-STD", res.Services[0].Code)
	assert.Equal(t, DeliveryTime{MinDays: 2, MaxDays: 3, EstimatedDate: "2024-03-13"}, res.Services[0].DeliveryTime)
	assert.Equal(t, []string{"sudeste", "sul", "centro-oeste"}, res.AvailableRegions)
}

func TestCalculator_ExpressWhenRequested(t *testing.T) {
	for _, st := range []string{"all", "express"} {
		res := newCalc(1).Quote(Request{Destination: "8", Weight: 1, Length: 1, Width: 1, Height: 1, ServiceType: st})
		require.Len(t, res.Services, 2, st)
		assert.Equal(t, "MS-EXP", res.Services[1].Code)
		assert.Equal(t, "2024-03-11", res.Services[1].DeliveryTime.EstimatedDate)
	}

	res := newCalc(1).Quote(Request{Destination: "8", ServiceType: "standard"})
	assert.Len(t, res.Services, 1)
}

func TestCalculator_RegionNotAvailable(t *testing.T) {
	res := newCalc(7).Quote(Request{Destination: "20000000"})
	assert.Equal(t, StatusRegionNotAvailable, res.Status)
	assert.Equal(t, "MS-100000007", res.QuoteID)
	assert.Equal(t, "Região de entrega não atendida por nossos serviços", res.Message)
	assert.Empty(t, res.Services)
}

func TestParseRequest(t *testing.T) {
	q := url.Values{
		"origin": {"01310100"}, "destination": {"30140071"},
		"weight": {"2.5"}, "length": {"30"}, "width": {"20"}, "height": {"10"},
		"service_type": {"all"},
	}
	req, err := ParseRequest(q)
	require.NoError(t, err)
	assert.Equal(t, 2.5, req.Weight)
	assert.Equal(t, "all", req.ServiceType)

	q.Del("height")
	_, err = ParseRequest(q)
	assert.True(t, errors.Is(err, ErrMissingParameters))

	q.Set("height", "tall")
	_, err = ParseRequest(q)
	assert.True(t, errors.Is(err, ErrInvalidParameters))

	q.Set("height", "10")
	q.Set("declared_value", "-1")
	_, err = ParseRequest(q)
	assert.True(t, errors.Is(err, ErrInvalidParameters))

	q.Del("declared_value")
	for _, v := range []string{"NaN", "Inf", "-Infinity", "+inf"} {
		q.Set("weight", v)
		_, err = ParseRequest(q)
		assert.True(t, errors.Is(err, ErrInvalidParameters), "weight=%s", v)
	}
}

func TestRandomDelay(t *testing.T) {
	d := RandomDelay{Min: 200 * time.Millisecond, Max: 800 * time.Millisecond, Rand: fixedRand(1 << 20)}
	assert.Equal(t, 800*time.Millisecond, d.Duration())

	d.Rand = fixedRand(0)
	assert.Equal(t, 200*time.Millisecond, d.Duration())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RandomDelay{Min: time.Hour, Max: time.Hour}.Delay(ctx), context.Canceled)

	require.NoError(t, RandomDelay{Min: time.Millisecond, Max: time.Millisecond}.Delay(context.Background()))
}

type recordingDelay struct{ calls int }

func (d *recordingDelay) Delay(context.Context) error { d.calls++; return nil }

func serve(h http.Handler, target string, tel *domain.Telemetry) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if tel != nil {
		r = r.WithContext(ratelimit.WithTelemetry(r.Context(), *tel))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandler_Success(t *testing.T) {
	delay := &recordingDelay{}
	var statuses []string
	h := NewHandler(newCalc(5), WithDelayer(delay), WithQuoteObserver(func(s string) { statuses = append(statuses, s) }))

	tel := &domain.Telemetry{Remaining: 4, ResetInSeconds: 60, DailyQuota: 100, DailyRemaining: 99}
	w := serve(h, "/shipping/quote?origin=01310100&destination=30140071&weight=2.5&length=30&width=20&height=10&service_type=express", tel)

	require.Equal(t, http.StatusOK, w.Code)
	var body response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, StatusSuccess, body.Status)
	assert.Equal(t, "MS-100000005", body.QuoteID)
	require.Len(t, body.Services, 2)
	assert.Equal(t, 48.0, body.Services[0].Price)
	assert.Equal(t, 76.8, body.Services[1].Price)
	require.NotNil(t, body.RateLimit)
	assert.Equal(t, *tel, *body.RateLimit)
	assert.Equal(t, 1, delay.calls)
	assert.Equal(t, []string{"success"}, statuses)
}

func TestHandler_RegionNotAvailableSkipsDelay(t *testing.T) {
	delay := &recordingDelay{}
	h := NewHandler(newCalc(5), WithDelayer(delay))

	w := serve(h, "/shipping/quote?origin=01310100&destination=69000000&weight=1&length=1&width=1&height=1", &domain.Telemetry{Remaining: 3})

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "region_not_available", body["status"])
	assert.Contains(t, body, "rate_limit")
	assert.NotContains(t, body, "services")
	assert.Equal(t, 0, delay.calls)
}

func TestHandler_MissingParameters(t *testing.T) {
	h := NewHandler(newCalc(5))

	w := serve(h, "/shipping/quote?origin=01310100", &domain.Telemetry{Remaining: 2, DailyQuota: 100})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env ratelimit.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, CodeMissingParameters, env.ErrorCode)
	assert.Equal(t, "Missing required parameters", env.Message)
	require.NotNil(t, env.RateLimit)
	assert.Equal(t, 2, env.RateLimit.Remaining)
}

func TestHandler_InvalidParameters(t *testing.T) {
	h := NewHandler(newCalc(5))

	for _, weight := range []string{"x", "NaN", "Inf"} {
		w := serve(h, "/shipping/quote?origin=a&destination=0&weight="+weight+"&length=1&width=1&height=1", nil)

		require.Equal(t, http.StatusBadRequest, w.Code, "weight=%s", weight)
		var env ratelimit.ErrorEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		assert.Equal(t, CodeInvalidParameters, env.ErrorCode)
	}
}

type failingDelay struct{}

func (failingDelay) Delay(context.Context) error { return context.Canceled }

func TestHandler_ClientGoneDuringDelay(t *testing.T) {
	var statuses []string
	h := NewHandler(newCalc(5), WithDelayer(failingDelay{}), WithQuoteObserver(func(s string) { statuses = append(statuses, s) }))

	w := serve(h, "/shipping/quote?origin=0&destination=0&weight=1&length=1&width=1&height=1", nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Empty(t, statuses)
}
