package application

import (
	"ratelimit-client/client/ratelimit/domain"
)

// Route é o handle devolvido por Check/Sleep/Match.
//
// Toda mutação passa de volta pelas travas do Coordinator; o estado em si
// nunca sai do coordenador. Métodos aceitam receiver nil (sem rota casada),
// então o chamador pode sempre fazer route.Update(resp.Header).
type Route struct {
	c  *Coordinator
	st *RouteLimitState
}

func (r *Route) Name() string {
	if r == nil {
		return ""
	}
	return r.st.route.Name()
}

func (r *Route) Pattern() domain.RoutePattern {
	if r == nil {
		return domain.RoutePattern{}
	}
	return r.st.route
}

// Update aplica os headers de rate limit da resposta.
func (r *Route) Update(h domain.Headers) {
	if r == nil {
		return
	}
	r.c.checkMu.Lock()
	defer r.c.checkMu.Unlock()
	r.st.Update(h, r.c.clock(), r.c.log)
}

// Expire zera a janela manualmente.
func (r *Route) Expire() {
	if r == nil {
		return
	}
	r.c.checkMu.Lock()
	defer r.c.checkMu.Unlock()
	r.st.Expire()
}

// Snapshot retorna uma cópia do estado atual.
func (r *Route) Snapshot() RouteLimit {
	if r == nil {
		return RouteLimit{}
	}
	r.c.checkMu.Lock()
	defer r.c.checkMu.Unlock()
	r.c.enqueueMu.Lock()
	defer r.c.enqueueMu.Unlock()
	return r.st.snapshot()
}
