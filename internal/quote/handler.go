package quote

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"megashipping-mock/middleware/ratelimit"
	"megashipping-mock/middleware/ratelimit/domain"
)

const (
	CodeMissingParameters = "MISSING_PARAMETERS"
	CodeInvalidParameters = "INVALID_PARAMETERS"
)

type response struct {
	Result
	RateLimit *domain.Telemetry `json:"rate_limit,omitempty"`
}

// Handler serve GET /shipping/quote. Espera rodar atrás do middleware de
// admissão, que deixa a telemetria no contexto.
type Handler struct {
	calc    *Calculator
	delay   Delayer
	logger  *zap.Logger
	onQuote func(status string)
}

type HandlerOption func(*Handler)

func WithDelayer(d Delayer) HandlerOption {
	return func(h *Handler) { h.delay = d }
}

func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithQuoteObserver recebe o status de cada resposta (success,
// region_not_available, missing_parameters, invalid_parameters).
func WithQuoteObserver(fn func(status string)) HandlerOption {
	return func(h *Handler) { h.onQuote = fn }
}

func NewHandler(calc *Calculator, opts ...HandlerOption) *Handler {
	h := &Handler{calc: calc, delay: NoDelay{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var rl *domain.Telemetry
	if t, ok := ratelimit.TelemetryFromContext(r.Context()); ok {
		rl = &t
	}

	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		code, msg := CodeInvalidParameters, err.Error()
		if errors.Is(err, ErrMissingParameters) {
			code, msg = CodeMissingParameters, "Missing required parameters"
		}
		h.observe(lowerCode(code))
		ratelimit.WriteError(w, http.StatusBadRequest, ratelimit.NewErrorEnvelope(code, msg, rl))
		return
	}

	res := h.calc.Quote(req)

	if res.Status == StatusSuccess {
		if err := h.delay.Delay(r.Context()); err != nil {
			h.logger.Debug("client gone during simulated delay",
				zap.String("quote_id", res.QuoteID), zap.Error(err))
			return
		}
	}

	h.observe(res.Status)
	ratelimit.WriteJSON(w, http.StatusOK, response{Result: res, RateLimit: rl})
}

func (h *Handler) observe(status string) {
	if h.onQuote != nil {
		h.onQuote(status)
	}
}

func lowerCode(code string) string {
	if code == CodeMissingParameters {
		return "missing_parameters"
	}
	return "invalid_parameters"
}
