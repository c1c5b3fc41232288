package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// RoutePattern descreve um grupo lógico de endpoints com rate limit próprio.
//
// É imutável depois de construído: os campos são privados e só expostos por getters.
type RoutePattern struct {
	name    string
	pattern *regexp.Regexp
	method  string
}

// NewRoutePattern compila o padrão (semântica de regexp do Go).
// method vazio significa "vale para todos os métodos".
//
// O match é uma busca sem âncora: "/orders" também casa com "/v2/orders/archive".
// Ancorar com ^ e $ é responsabilidade de quem escreve o padrão.
func NewRoutePattern(name, pattern, method string) (RoutePattern, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return RoutePattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return RoutePattern{
		name:    name,
		pattern: re,
		method:  strings.ToUpper(strings.TrimSpace(method)),
	}, nil
}

// MustRoutePattern é como NewRoutePattern, mas entra em pânico se o padrão for inválido.
// Útil para tabelas de rotas estáticas.
func MustRoutePattern(name, pattern, method string) RoutePattern {
	p, err := NewRoutePattern(name, pattern, method)
	if err != nil {
		panic(err)
	}
	return p
}

func (p RoutePattern) Name() string   { return p.name }
func (p RoutePattern) Method() string { return p.method }

// Key é a chave do registro: o texto do padrão.
func (p RoutePattern) Key() string {
	if p.pattern == nil {
		return ""
	}
	return p.pattern.String()
}

// Specificity aproxima o quão específico é o padrão pelo número de separadores de path.
// Mais segmentos => mais específico.
func (p RoutePattern) Specificity() int {
	return strings.Count(p.Key(), "/")
}

// AppliesTo informa se a restrição de método deixa a rota valer para method.
func (p RoutePattern) AppliesTo(method string) bool {
	return p.method == "" || strings.EqualFold(p.method, method)
}

// Matches verifica path e método. O padrão é procurado em qualquer posição
// do path (regexp.MatchString), então só ^/$ no próprio padrão ancoram.
func (p RoutePattern) Matches(path, method string) bool {
	if p.pattern == nil {
		return false
	}
	return p.AppliesTo(method) && p.pattern.MatchString(path)
}

func (p RoutePattern) String() string {
	m := p.method
	if m == "" {
		m = "*"
	}
	return fmt.Sprintf("%s %s (%s)", m, p.Key(), p.name)
}

// IsZero indica um RoutePattern não construído (sem padrão compilado).
func (p RoutePattern) IsZero() bool { return p.pattern == nil }
