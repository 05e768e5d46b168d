package quote

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrMissingParameters = errors.New("missing required parameters")
	ErrInvalidParameters = errors.New("invalid parameters")
)

var requiredParams = []string{"origin", "destination", "weight", "length", "width", "height"}

// ParseRequest lê os parâmetros da query. Qualquer obrigatório vazio gera
// ErrMissingParameters; números malformados geram ErrInvalidParameters.
func ParseRequest(q url.Values) (Request, error) {
	var missing []string
	for _, name := range requiredParams {
		if q.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Request{}, fmt.Errorf("%w: %s", ErrMissingParameters, strings.Join(missing, ", "))
	}

	req := Request{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		ServiceType: q.Get("service_type"),
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"weight", &req.Weight},
		{"length", &req.Length},
		{"width", &req.Width},
		{"height", &req.Height},
		{"declared_value", &req.DeclaredValue},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Request{}, fmt.Errorf("%w: %s must be a finite non-negative number", ErrInvalidParameters, f.name)
		}
		*f.dst = v
	}
	return req, nil
}
