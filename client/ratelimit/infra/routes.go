package infra

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ratelimit-client/client/ratelimit/domain"

	"gopkg.in/yaml.v3"
)

// RouteConfig é uma entrada da tabela de rotas.
//
//	routes:
//	  - name: messages
//	    pattern: ^/guild/[0-9]+/messages$
//	    method: POST
//	    limit: 5
//	    window: 5s
type RouteConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Method  string `yaml:"method"`
	Limit   int    `yaml:"limit"`
	Window  string `yaml:"window"`
}

type routeTable struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteRegistrar é o que LoadRoutes precisa do coordenador.
type RouteRegistrar interface {
	Register(p domain.RoutePattern, limit int, window time.Duration) error
}

// ParseRoutes decodifica a tabela de rotas em YAML.
func ParseRoutes(r io.Reader) ([]RouteConfig, error) {
	var table routeTable
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	return table.Routes, nil
}

// LoadRoutesFile lê o arquivo e registra todas as rotas em reg, na ordem do arquivo
// (a ordem importa para o desempate do match).
func LoadRoutesFile(path string, reg RouteRegistrar) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open routes: %w", err)
	}
	defer f.Close() // nolint:errcheck // somente leitura

	routes, err := ParseRoutes(f)
	if err != nil {
		return 0, err
	}
	return RegisterRoutes(routes, reg)
}

// RegisterRoutes valida e registra cada rota. Para no primeiro erro.
func RegisterRoutes(routes []RouteConfig, reg RouteRegistrar) (int, error) {
	for i, rc := range routes {
		p, window, err := rc.build()
		if err != nil {
			return i, fmt.Errorf("route %d (%s): %w", i, rc.Name, err)
		}
		if err := reg.Register(p, rc.Limit, window); err != nil {
			return i, fmt.Errorf("route %d (%s): %w", i, rc.Name, err)
		}
	}
	return len(routes), nil
}

func (rc RouteConfig) build() (domain.RoutePattern, time.Duration, error) {
	name := strings.TrimSpace(rc.Name)
	if name == "" {
		name = rc.Pattern
	}
	p, err := domain.NewRoutePattern(name, rc.Pattern, rc.Method)
	if err != nil {
		return domain.RoutePattern{}, 0, err
	}
	window, err := parseWindow(rc.Window)
	if err != nil {
		return domain.RoutePattern{}, 0, err
	}
	return p, window, nil
}

// parseWindow aceita duração Go ("90s", "1m") ou segundos inteiros ("60").
func parseWindow(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: window is required", domain.ErrInvalidRoute)
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(raw + "s")
	if err != nil {
		return 0, fmt.Errorf("%w: window %q", domain.ErrInvalidRoute, raw)
	}
	return d, nil
}
