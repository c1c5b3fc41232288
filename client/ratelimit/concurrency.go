package ratelimit

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"ratelimit-client/client/ratelimit/application"
	"ratelimit-client/client/ratelimit/infra"
)

// ErrNoSlot é retornado quando não houve vaga dentro do AcquireTimeout.
// O erro embrulha application.ErrAcquireTimeout.
var ErrNoSlot = errors.New("ratelimit: no concurrency slot available")

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	Base           http.RoundTripper
}

// ConcurrencyTransport limita quantas requisições ficam em voo.
// A vaga só é devolvida quando o corpo da resposta é fechado.
type ConcurrencyTransport struct {
	limiter *application.InFlightLimiter
	base    http.RoundTripper
}

// NewConcurrencyTransport com Max <= 0 retorna o próprio base (sem limite).
func NewConcurrencyTransport(opts ConcurrencyOptions) http.RoundTripper {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.Max <= 0 {
		return opts.Base
	}
	return &ConcurrencyTransport{
		limiter: application.NewInFlightLimiter(infra.NewChanPool(opts.Max), opts.AcquireTimeout),
		base:    opts.Base,
	}
}

func (t *ConcurrencyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	release, err := t.limiter.Acquire(req.Context())
	if errors.Is(err, application.ErrAcquireTimeout) {
		return nil, fmt.Errorf("%w: %w", ErrNoSlot, err)
	}
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		release()
		return nil, err
	}
	if resp.Body == nil {
		release()
		return resp, nil
	}
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// InFlight devolve quantas respostas ainda seguram vaga.
func (t *ConcurrencyTransport) InFlight() int64 { return t.limiter.InFlight() }

type releaseOnClose struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (r *releaseOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}
