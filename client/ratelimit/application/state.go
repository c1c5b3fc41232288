package application

import (
	"time"

	"ratelimit-client/client/ratelimit/domain"

	"go.uber.org/zap"
)

// staleThreshold: a janela só é considerada vencida quando expirou há mais de 1µs.
const staleThreshold = -time.Microsecond

// RouteLimitState é o modelo mutável de cota de uma rota.
//
// Não é seguro para uso concorrente: quem serializa o acesso é o Coordinator
// (check-guard para used/limit/expiresAt, enqueue-guard para enqueued).
type RouteLimitState struct {
	route  domain.RoutePattern
	limit  int
	used   int
	window time.Duration
	// expiresAt zero significa "nenhuma janela observada ainda".
	expiresAt time.Time
	enqueued  int
}

func newRouteLimitState(route domain.RoutePattern, limit int, window time.Duration) *RouteLimitState {
	return &RouteLimitState{route: route, limit: limit, window: window}
}

// TimeUntilExpire é expiresAt - now. Pode ser negativo (janela já passou).
// Com expiresAt zero o resultado satura em um valor muito negativo.
func (s *RouteLimitState) TimeUntilExpire(now time.Time) time.Duration {
	return s.expiresAt.Sub(now)
}

// CanCall decide se a rota aceita uma chamada agora.
//
// Método diferente da restrição da rota => o limiter não se aplica.
// Caso contrário libera se used < limit OU se a janela está vencida há mais de 1µs.
// Esse segundo caso é a expiração "preguiçosa": não existe goroutine zerando
// a janela, basta o relógio passar de expiresAt. O limiar é assimétrico
// (exatamente em expiresAt, ou até 1µs depois, ainda conta como ativa).
func (s *RouteLimitState) CanCall(method string, now time.Time) bool {
	if !s.route.AppliesTo(method) {
		return true
	}
	return s.used < s.limit || isStale(now, s.expiresAt)
}

// isStale é a regra de expiração preguiçosa como função pura de (now, expiresAt).
func isStale(now, expiresAt time.Time) bool {
	return expiresAt.Sub(now) < staleThreshold
}

// Expire zera used e volta expiresAt para "não definido".
func (s *RouteLimitState) Expire() {
	s.used = 0
	s.expiresAt = time.Time{}
}

// Update atualiza o modelo a partir dos headers de uma resposta.
//
// Headers ausentes são ignorados; headers presentes mas inválidos também
// (apenas logados em debug). Nunca falha.
func (s *RouteLimitState) Update(h domain.Headers, now time.Time, log *zap.Logger) {
	if s.expiresAt.IsZero() {
		s.expiresAt = now.Add(s.window)
	}

	if limit, ok, err := domain.HeaderInt(h, domain.HeaderLimit); err != nil {
		malformed(log, s.route, domain.HeaderLimit, err)
	} else if ok {
		if limit < 0 {
			limit = 0
		}
		s.limit = limit
	}

	if retryAt, ok, err := domain.HeaderUnixTime(h, domain.HeaderRetryAfter); err != nil {
		malformed(log, s.route, domain.HeaderRetryAfter, err)
	} else if ok && retryAt.After(s.expiresAt) {
		s.expiresAt = retryAt
	}

	remaining, ok, err := domain.HeaderInt(h, domain.HeaderRemaining)
	if err != nil {
		malformed(log, s.route, domain.HeaderRemaining, err)
	}
	if ok && err == nil {
		s.used = max(s.limit-remaining, 0)
		return
	}
	// sem sinal de "remaining": contabilidade otimista.
	s.used++
}

func (s *RouteLimitState) snapshot() RouteLimit {
	return RouteLimit{
		Name:      s.route.Name(),
		Pattern:   s.route.Key(),
		Method:    s.route.Method(),
		Limit:     s.limit,
		Used:      s.used,
		Window:    s.window,
		ExpiresAt: s.expiresAt,
		Enqueued:  s.enqueued,
	}
}

func malformed(log *zap.Logger, route domain.RoutePattern, header string, err error) {
	if log == nil {
		return
	}
	log.Debug("ignoring malformed rate limit header",
		zap.String("route", route.Name()),
		zap.String("header", header),
		zap.Error(err))
}

// RouteLimit é uma cópia (por valor) do estado de uma rota.
type RouteLimit struct {
	Name      string
	Pattern   string
	Method    string
	Limit     int
	Used      int
	Window    time.Duration
	ExpiresAt time.Time
	Enqueued  int
}

// Unset informa se nenhuma janela foi observada ainda.
func (r RouteLimit) Unset() bool { return r.ExpiresAt.IsZero() }
