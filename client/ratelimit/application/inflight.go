package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ratelimit-client/client/ratelimit/domain"
)

// ErrAcquireTimeout indica que nenhuma vaga de saída abriu dentro do
// acquireTimeout, com o contexto do chamador ainda vivo.
var ErrAcquireTimeout = errors.New("in-flight slot acquire timeout")

// InFlightLimiter limita quantas requisições de saída ficam em voo e conta
// as vagas ocupadas. Um limiter nil (ou sem pool) não limita nada.
type InFlightLimiter struct {
	pool           domain.SlotPool
	acquireTimeout time.Duration
	inFlight       atomic.Int64
}

// NewInFlightLimiter com acquireTimeout <= 0 espera por vaga até o ctx acabar.
func NewInFlightLimiter(pool domain.SlotPool, acquireTimeout time.Duration) *InFlightLimiter {
	return &InFlightLimiter{pool: pool, acquireTimeout: acquireTimeout}
}

// Acquire reserva uma vaga para uma requisição de saída.
//
// Erros: o erro do ctx quando o chamador desistiu, ErrAcquireTimeout quando
// só o prazo de aquisição venceu. Em erro, release é nil. O release devolvido
// é idempotente.
func (l *InFlightLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if l == nil || l.pool == nil {
		return func() {}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acqCtx := ctx
	if l.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}

	rel, ok := l.pool.Acquire(acqCtx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrAcquireTimeout
	}

	l.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.inFlight.Add(-1)
			rel()
		})
	}, nil
}

// InFlight devolve quantas vagas estão ocupadas agora.
func (l *InFlightLimiter) InFlight() int64 {
	if l == nil {
		return 0
	}
	return l.inFlight.Load()
}
