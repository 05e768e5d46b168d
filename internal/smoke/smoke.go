// Package smoke roda contra um mock já no ar o mesmo roteiro que os
// integradores usam para validar o cliente: cotação, região fora da área e
// rajada até o 429.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Check struct {
	Name   string
	Passed bool
	Detail string
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	// MaxBurst limita quantas requisições a rajada faz antes de desistir.
	MaxBurst int
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		MaxBurst: 6,
	}
}

type body struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Services  []struct {
		Code string `json:"service_code"`
	} `json:"services"`
	RateLimit *struct {
		Remaining      int `json:"remaining"`
		ResetInSeconds int `json:"reset_in_seconds"`
	} `json:"rate_limit"`
}

func (c *Client) quoteParams(destination string) url.Values {
	return url.Values{
		"api_key":        {c.APIKey},
		"origin":         {"01310100"},
		"destination":    {destination},
		"weight":         {"1.5"},
		"length":         {"15"},
		"width":          {"30"},
		"height":         {"20"},
		"declared_value": {"150.00"},
		"service_type":   {"all"},
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (int, body, error) {
	target := c.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, body{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, body{}, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, body{}, fmt.Errorf("read %s: %w", path, err)
	}
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return resp.StatusCode, body{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, b, nil
}

// Run executa todas as verificações em sequência. Erros de transporte viram
// verificações com falha; o retorno de erro fica para ctx cancelado.
func (c *Client) Run(ctx context.Context) ([]Check, error) {
	steps := []func(context.Context) Check{
		c.checkHealth,
		c.checkQuote,
		c.checkRegionNotAvailable,
		c.checkBurst,
	}
	checks := make([]Check, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return checks, err
		}
		checks = append(checks, step(ctx))
	}
	return checks, nil
}

func (c *Client) checkHealth(ctx context.Context) Check {
	ch := Check{Name: "health"}
	status, b, err := c.get(ctx, "/health", nil)
	switch {
	case err != nil:
		ch.Detail = err.Error()
	case status != http.StatusOK || b.Status != "ok":
		ch.Detail = fmt.Sprintf("got %d %q", status, b.Status)
	default:
		ch.Passed = true
		ch.Detail = "ok"
	}
	return ch
}

func (c *Client) checkQuote(ctx context.Context) Check {
	ch := Check{Name: "successful quote"}
	status, b, err := c.get(ctx, "/shipping/quote", c.quoteParams("04538132"))
	switch {
	case err != nil:
		ch.Detail = err.Error()
	case status != http.StatusOK || b.Status != "success":
		ch.Detail = fmt.Sprintf("got %d status=%q error_code=%q", status, b.Status, b.ErrorCode)
	case len(b.Services) != 2:
		ch.Detail = fmt.Sprintf("expected 2 services, got %d", len(b.Services))
	case b.RateLimit == nil:
		ch.Detail = "missing rate_limit"
	default:
		ch.Passed = true
		ch.Detail = fmt.Sprintf("remaining %d", b.RateLimit.Remaining)
	}
	return ch
}

func (c *Client) checkRegionNotAvailable(ctx context.Context) Check {
	ch := Check{Name: "region not available"}
	status, b, err := c.get(ctx, "/shipping/quote", c.quoteParams("90000000"))
	switch {
	case err != nil:
		ch.Detail = err.Error()
	case status != http.StatusOK || b.Status != "region_not_available":
		ch.Detail = fmt.Sprintf("got %d status=%q error_code=%q", status, b.Status, b.ErrorCode)
	default:
		ch.Passed = true
		ch.Detail = b.Status
	}
	return ch
}

func (c *Client) checkBurst(ctx context.Context) Check {
	ch := Check{Name: "rate limit burst"}
	for i := 1; i <= c.MaxBurst; i++ {
		status, b, err := c.get(ctx, "/shipping/quote", c.quoteParams("04538132"))
		if err != nil {
			ch.Detail = err.Error()
			return ch
		}
		if status == http.StatusTooManyRequests {
			if b.RateLimit == nil {
				ch.Detail = fmt.Sprintf("429 %s without rate_limit", b.ErrorCode)
				return ch
			}
			ch.Passed = true
			ch.Detail = fmt.Sprintf("429 %s after %d requests, reset in %ds", b.ErrorCode, i, b.RateLimit.ResetInSeconds)
			return ch
		}
	}
	ch.Detail = fmt.Sprintf("no 429 after %d requests", c.MaxBurst)
	return ch
}
