package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ratelimit-client/client/ratelimit/domain"
)

type registered struct {
	pattern domain.RoutePattern
	limit   int
	window  time.Duration
}

type fakeRegistrar struct {
	routes []registered
}

func (f *fakeRegistrar) Register(p domain.RoutePattern, limit int, window time.Duration) error {
	f.routes = append(f.routes, registered{pattern: p, limit: limit, window: window})
	return nil
}

const routesYAML = `
routes:
  - name: guild
    pattern: ^/guild/[0-9]+
    limit: 50
    window: 1m
  - name: messages
    pattern: ^/guild/[0-9]+/messages$
    method: post
    limit: 5
    window: "5"
`

func TestLoadRoutesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routesYAML), 0o600))

	reg := &fakeRegistrar{}
	n, err := LoadRoutesFile(path, reg)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Equal(t, "guild", reg.routes[0].pattern.Name())
	require.Equal(t, time.Minute, reg.routes[0].window)
	require.Equal(t, "", reg.routes[0].pattern.Method())

	require.Equal(t, "messages", reg.routes[1].pattern.Name())
	require.Equal(t, "POST", reg.routes[1].pattern.Method())
	require.Equal(t, 5, reg.routes[1].limit)
	require.Equal(t, 5*time.Second, reg.routes[1].window)
}

func TestParseRoutes_Errors(t *testing.T) {
	_, err := ParseRoutes(strings.NewReader("routes:\n  - name: x\n    bogus: 1\n"))
	require.Error(t, err, "unknown fields are rejected")

	routes, err := ParseRoutes(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, routes)

	_, err = RegisterRoutes([]RouteConfig{{Name: "x", Pattern: "(", Window: "1m"}}, &fakeRegistrar{})
	require.ErrorIs(t, err, domain.ErrInvalidPattern)

	_, err = RegisterRoutes([]RouteConfig{{Name: "x", Pattern: "^/x"}}, &fakeRegistrar{})
	require.ErrorIs(t, err, domain.ErrInvalidRoute)

	_, err = LoadRoutesFile(filepath.Join(t.TempDir(), "missing.yaml"), &fakeRegistrar{})
	require.Error(t, err)
}
