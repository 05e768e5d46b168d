package application

import (
	"context"
	"sync/atomic"
	"time"

	"megashipping-mock/middleware/ratelimit/domain"
)

// InFlight controla quantas cotações podem estar sendo servidas ao mesmo
// tempo (a latência artificial segura cada uma por centenas de ms).
type InFlight struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	// OnChange recebe +1 a cada vaga adquirida e -1 a cada liberação.
	OnChange func(delta int)

	active atomic.Int64
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx encerrar.
//   - AcquireTimeout > 0: espera no máximo esse tempo.
//
// Se ok=false nenhuma vaga foi adquirida e release é nil.
func (s *InFlight) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	poolRelease, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		return nil, false
	}
	s.changed(1)

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			poolRelease()
			s.changed(-1)
		}
	}, true
}

// Active devolve quantas vagas estão em uso agora.
func (s *InFlight) Active() int64 { return s.active.Load() }

func (s *InFlight) changed(delta int) {
	s.active.Add(int64(delta))
	if s.OnChange != nil {
		s.OnChange(delta)
	}
}
