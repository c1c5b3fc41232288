package upstream

import (
	"context"
	"sync"
	"time"

	"ratelimit-client/client/ratelimit/domain"
)

// Quota é a cota de uma rota: Limit chamadas por Window, por chave de cliente.
type Quota struct {
	Route  domain.RoutePattern
	Limit  int
	Window time.Duration
}

// Decision é o resultado de uma tentativa de consumir a cota.
type Decision struct {
	Allowed   bool
	Route     string
	Limit     int
	Remaining int
	// ResetAt é quando a janela atual termina.
	ResetAt time.Time
}

type window struct {
	end      time.Time
	count    int
	lastSeen time.Time
}

// Quotas guarda contadores de janela fixa por (rota, chave), com limpeza
// periódica das chaves inativas.
type Quotas struct {
	mu           sync.Mutex
	quotas       []Quota
	windows      map[string]*window
	clock        func() time.Time
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type QuotasOption func(*Quotas)

// WithIdleTTL define por quanto tempo uma janela já encerrada fica guardada
// depois do último acesso.
func WithIdleTTL(d time.Duration) QuotasOption {
	return func(q *Quotas) { q.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) QuotasOption {
	return func(q *Quotas) { q.cleanupEvery = d }
}

// WithClock troca o relógio (testes).
func WithClock(clock func() time.Time) QuotasOption {
	return func(q *Quotas) {
		if clock != nil {
			q.clock = clock
		}
	}
}

func NewQuotas(quotas []Quota, opts ...QuotasOption) *Quotas {
	q := &Quotas{
		quotas:       quotas,
		windows:      make(map[string]*window),
		clock:        time.Now,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Quotas) Now() time.Time { return q.clock() }

func (q *Quotas) CleanupEvery() time.Duration { return q.cleanupEvery }

// Len devolve quantas janelas (rota, chave) estão em memória.
func (q *Quotas) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.windows)
}

// Cleanup remove janelas encerradas sem acesso há mais de idleTTL.
// Uma janela ativa nunca é removida, senão o contador voltaria a zero antes
// do reset anunciado.
func (q *Quotas) Cleanup() {
	now := q.clock()
	cutoff := now.Add(-q.idleTTL)

	q.mu.Lock()
	defer q.mu.Unlock()

	for k, w := range q.windows {
		if !now.Before(w.end) && w.lastSeen.Before(cutoff) {
			delete(q.windows, k)
		}
	}
}

// StartJanitor inicia uma goroutine que chama Cleanup periodicamente.
// Pare cancelando o contexto.
func (q *Quotas) StartJanitor(ctx context.Context) {
	if q.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(q.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				q.Cleanup()
			}
		}
	}()
}

// Take consome uma chamada da rota mais específica que casar.
// ok=false quando nenhuma cota se aplica.
func (q *Quotas) Take(key, path, method string) (Decision, bool) {
	quota, ok := q.match(path, method)
	if !ok {
		return Decision{}, false
	}

	now := q.clock()
	id := quota.Route.Key() + "|" + key

	q.mu.Lock()
	defer q.mu.Unlock()

	w, ok := q.windows[id]
	if !ok || !now.Before(w.end) {
		w = &window{end: now.Add(quota.Window)}
		q.windows[id] = w
	}
	w.lastSeen = now

	dec := Decision{
		Route:   quota.Route.Name(),
		Limit:   quota.Limit,
		ResetAt: w.end,
	}
	if w.count >= quota.Limit {
		return dec, true
	}
	w.count++
	dec.Allowed = true
	dec.Remaining = quota.Limit - w.count
	return dec, true
}

func (q *Quotas) match(path, method string) (Quota, bool) {
	best, score := Quota{}, -1
	for _, quota := range q.quotas {
		if quota.Route.Matches(path, method) && quota.Route.Specificity() > score {
			best, score = quota, quota.Route.Specificity()
		}
	}
	return best, score >= 0
}
