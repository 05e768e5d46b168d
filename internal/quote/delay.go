package quote

import (
	"context"
	"time"
)

// Delayer simula a latência de uma transportadora real.
type Delayer interface {
	Delay(ctx context.Context) error
}

// RandomDelay espera um tempo uniforme em [Min, Max]. Retorna ctx.Err() se o
// cliente desistir antes.
type RandomDelay struct {
	Min, Max time.Duration
	Rand     IntN
}

func (d RandomDelay) Duration() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	src := d.Rand
	if src == nil {
		src = SystemRand{}
	}
	span := int((d.Max-d.Min)/time.Millisecond) + 1
	return d.Min + time.Duration(src.IntN(span))*time.Millisecond
}

func (d RandomDelay) Delay(ctx context.Context) error {
	wait := d.Duration()
	if wait <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoDelay responde na hora (testes e CLI).
type NoDelay struct{}

func (NoDelay) Delay(ctx context.Context) error { return ctx.Err() }
