package application

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ratelimit-client/client/ratelimit/domain"

	"go.uber.org/zap"
)

// NoWait é o valor de espera retornado por Check quando a chamada pode seguir.
const NoWait = -1.0

// waitersPerWindow: a cada 60 chamadores enfileirados soma-se uma janela inteira à espera.
// Assim, quando a janela real vence, dispara no máximo ~2x a cota de uma vez.
const waitersPerWindow = 60

// Sleeper suspende o chamador por d ou até o ctx encerrar.
type Sleeper func(ctx context.Context, d time.Duration) error

// Coordinator mantém o estado de rate limit por rota de um cliente HTTP.
//
// Deve ser criado por quem monta o cliente e compartilhado por referência;
// não há registro global, então clientes distintos no mesmo processo não se
// contaminam.
//
// Duas travas independentes:
//   - checkMu serializa o match, a leitura de used/limit/expiresAt e Update/Expire;
//   - enqueueMu serializa apenas o contador enqueued.
//
// Ordem de aquisição quando ambas são necessárias: checkMu -> enqueueMu.
type Coordinator struct {
	checkMu   sync.Mutex
	enqueueMu sync.Mutex

	// routes em ordem de registro; define o desempate do match.
	routes []*RouteLimitState

	clock func() time.Time
	sleep Sleeper
	log   *zap.Logger
	stats domain.StatsStore
}

type Option func(*Coordinator)

// WithClock injeta o relógio (testes).
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSleeper troca a forma de suspender o chamador (testes).
func WithSleeper(s Sleeper) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStats registra um WaitEvent por chamada a Sleep que casou com uma rota.
func WithStats(s domain.StatsStore) Option {
	return func(c *Coordinator) { c.stats = s }
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock: time.Now,
		sleep: sleepContext,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register insere o estado da rota (começa "não definido").
//
// Se já existe uma rota com o mesmo padrão, o estado anterior é substituído
// (sem merge) e a posição original de registro é mantida.
func (c *Coordinator) Register(p domain.RoutePattern, limit int, window time.Duration) error {
	if p.IsZero() {
		return fmt.Errorf("%w: empty pattern", domain.ErrInvalidRoute)
	}
	if limit < 0 {
		return fmt.Errorf("%w: limit must be >= 0, got %d", domain.ErrInvalidRoute, limit)
	}
	if window <= 0 {
		return fmt.Errorf("%w: window must be > 0, got %s", domain.ErrInvalidRoute, window)
	}

	st := newRouteLimitState(p, limit, window)

	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	if i := c.indexLocked(p.Key()); i >= 0 {
		c.routes[i] = st
		return nil
	}
	c.routes = append(c.routes, st)
	return nil
}

// Unregister remove a rota. Retorna domain.ErrRouteNotFound se não existir.
func (c *Coordinator) Unregister(p domain.RoutePattern) error {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	i := c.indexLocked(p.Key())
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrRouteNotFound, p.Key())
	}
	c.routes = append(c.routes[:i], c.routes[i+1:]...)
	return nil
}

// Match retorna a rota mais específica para (path, method), ou nil.
func (c *Coordinator) Match(path, method string) *Route {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	st := c.matchLocked(path, method)
	if st == nil {
		return nil
	}
	return &Route{c: c, st: st}
}

// Check calcula quantos segundos esperar antes de enviar.
//
// Sem rota: (NoWait, nil). Rota disponível: (NoWait, rota).
// Rota esgotada: ceil(timeUntilExpire + window*(enqueued/60) + 1), com divisão inteira.
func (c *Coordinator) Check(path, method string) (float64, *Route) {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	st := c.matchLocked(path, method)
	if st == nil {
		return NoWait, nil
	}
	route := &Route{c: c, st: st}

	now := c.clock()
	if st.CanCall(method, now) {
		return NoWait, route
	}

	c.enqueueMu.Lock()
	enqueued := st.enqueued
	c.enqueueMu.Unlock()

	return waitSeconds(st.TimeUntilExpire(now), st.window, enqueued), route
}

// Sleep chama Check e, se necessário, suspende o chamador pela espera calculada.
//
// Retorna a rota casada (ou nil) mesmo quando não houve espera, para que o
// chamador faça route.Update após a resposta. Se o ctx encerrar durante a
// espera, retorna a rota junto com ctx.Err(); enqueued é decrementado de
// qualquer forma.
func (c *Coordinator) Sleep(ctx context.Context, path, method string) (*Route, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	wait, route := c.Check(path, method)
	if route == nil {
		return nil, nil
	}

	ev := domain.WaitEvent{
		Route:  route.Name(),
		Method: method,
		Path:   path,
		At:     c.clock(),
	}
	if wait <= 0 {
		c.record(ctx, ev)
		return route, nil
	}

	d := waitDuration(wait)
	ev.Waited = true
	ev.Duration = d

	err := c.suspend(ctx, route.st, d)
	if err != nil {
		ev.Cancelled = true
		c.log.Debug("rate limit wait cancelled",
			zap.String("route", route.Name()),
			zap.String("path", path),
			zap.Error(err))
	}
	c.record(ctx, ev)
	return route, err
}

func (c *Coordinator) suspend(ctx context.Context, st *RouteLimitState, d time.Duration) error {
	enqueued := c.enqueue(st)
	defer c.dequeue(st)

	c.log.Debug("rate limited, waiting",
		zap.String("route", st.route.Name()),
		zap.Duration("wait", d),
		zap.Int("enqueued", enqueued))

	return c.sleep(ctx, d)
}

func (c *Coordinator) enqueue(st *RouteLimitState) int {
	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()
	st.enqueued++
	return st.enqueued
}

func (c *Coordinator) dequeue(st *RouteLimitState) {
	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()
	st.enqueued--
	if st.enqueued < 0 {
		// bug de ordenação no enqueue/dequeue; não há como recuperar.
		panic(fmt.Sprintf("ratelimit: negative enqueued count on route %q", st.route.Name()))
	}
}

// Routes retorna cópias do estado de todas as rotas, em ordem de registro.
func (c *Coordinator) Routes() []RouteLimit {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()
	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()

	out := make([]RouteLimit, 0, len(c.routes))
	for _, st := range c.routes {
		out = append(out, st.snapshot())
	}
	return out
}

// ExpireAll chama Expire em todas as rotas (override administrativo).
func (c *Coordinator) ExpireAll() {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()
	for _, st := range c.routes {
		st.Expire()
	}
}

// matchLocked varre em ordem de registro. Maior Specificity vence; no empate,
// fica a primeira encontrada (só troca com ">" estrito). Quem registra dois
// padrões sobrepostos com a mesma especificidade recebe sempre o registrado antes.
func (c *Coordinator) matchLocked(path, method string) *RouteLimitState {
	var (
		best      *RouteLimitState
		bestScore = -1
	)
	for _, st := range c.routes {
		if !st.route.Matches(path, method) {
			continue
		}
		if score := st.route.Specificity(); score > bestScore {
			best, bestScore = st, score
		}
	}
	return best
}

func (c *Coordinator) indexLocked(key string) int {
	for i, st := range c.routes {
		if st.route.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Coordinator) record(ctx context.Context, ev domain.WaitEvent) {
	if c.stats == nil {
		return
	}
	if err := c.stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Warn("rate limit stats record failed",
			zap.String("route", ev.Route),
			zap.Error(err))
	}
}

func waitSeconds(untilExpire, window time.Duration, enqueued int) float64 {
	batches := enqueued / waitersPerWindow
	return math.Ceil(untilExpire.Seconds() + window.Seconds()*float64(batches) + 1)
}

// waitDuration converte segundos em time.Duration saturando em maxDuration;
// a conversão direta de float estoura int64 para esperas de ~292 anos.
func waitDuration(seconds float64) time.Duration {
	ns := seconds * float64(time.Second)
	if ns >= float64(maxDuration) {
		return maxDuration
	}
	return time.Duration(ns)
}

const maxDuration = time.Duration(math.MaxInt64)

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
