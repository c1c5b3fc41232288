package ratelimit

import (
	"fmt"
	"net/http"

	"ratelimit-client/client/ratelimit/application"
	"ratelimit-client/client/ratelimit/domain"

	"go.uber.org/zap"
)

type Options struct {
	// Coordinator é obrigatório; compartilhe o mesmo entre os transports de um cliente.
	Coordinator *application.Coordinator
	// Pacer opcional, aplicado antes do coordenador (chave = host da requisição).
	Pacer  domain.Pacer
	Base   http.RoundTripper
	Logger *zap.Logger
}

// Transport é um http.RoundTripper que consulta o coordenador antes de enviar
// e o atualiza com os headers da resposta.
type Transport struct {
	coord *application.Coordinator
	pacer domain.Pacer
	base  http.RoundTripper
	log   *zap.Logger
}

func NewTransport(opts Options) *Transport {
	if opts.Coordinator == nil {
		opts.Coordinator = application.NewCoordinator()
	}
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Transport{
		coord: opts.Coordinator,
		pacer: opts.Pacer,
		base:  opts.Base,
		log:   opts.Logger,
	}
}

func (t *Transport) Coordinator() *application.Coordinator { return t.coord }

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.pacer != nil {
		if err := t.pacer.Wait(ctx, req.URL.Host); err != nil {
			return nil, fmt.Errorf("ratelimit pacer: %w", err)
		}
	}

	route, err := t.coord.Sleep(ctx, req.URL.Path, req.Method)
	if err != nil {
		return nil, fmt.Errorf("ratelimit wait %s: %w", route.Name(), err)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		// sem resposta não há headers; a janela continua como estava.
		return nil, err
	}

	route.Update(resp.Header)
	if route != nil && resp.StatusCode == http.StatusTooManyRequests {
		snap := route.Snapshot()
		t.log.Warn("server rate limited request",
			zap.String("route", snap.Name),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("limit", snap.Limit),
			zap.Time("expires_at", snap.ExpiresAt))
	}
	return resp, nil
}
