package upstream

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ratelimit-client/client/ratelimit/domain"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newHandler(clock func() time.Time, quotas ...Quota) (http.Handler, *int) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(Options{Quotas: NewQuotas(quotas, WithClock(clock))})(next), &calls
}

func do(h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "http://example"+path, nil)
	r.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_PublishesHeadersThenRejects(t *testing.T) {
	now := t0
	h, calls := newHandler(func() time.Time { return now }, Quota{
		Route:  domain.MustRoutePattern("orders", `^/orders$`, ""),
		Limit:  2,
		Window: time.Minute,
	})

	w1 := do(h, http.MethodGet, "/orders", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w1.Code)
	require.Equal(t, "2", w1.Header().Get(domain.HeaderLimit))
	require.Equal(t, "1", w1.Header().Get(domain.HeaderRemaining))
	require.Equal(t, strconv.FormatInt(t0.Add(time.Minute).Unix(), 10), w1.Header().Get(domain.HeaderRetryAfter))

	w2 := do(h, http.MethodGet, "/orders", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w2.Code)
	require.Equal(t, "0", w2.Header().Get(domain.HeaderRemaining))

	now = t0.Add(15 * time.Second)
	w3 := do(h, http.MethodGet, "/orders", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w3.Code)
	require.Equal(t, "45", w3.Header().Get("Retry-After"))
	require.Equal(t, 2, *calls)

	// outro cliente tem a própria janela
	w4 := do(h, http.MethodGet, "/orders", "10.0.0.2:1234")
	require.Equal(t, http.StatusOK, w4.Code)

	// janela nova depois do reset
	now = t0.Add(time.Minute)
	w5 := do(h, http.MethodGet, "/orders", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w5.Code)
	require.Equal(t, "1", w5.Header().Get(domain.HeaderRemaining))
}

func TestMiddleware_PassesThroughUnquotedRoutes(t *testing.T) {
	h, calls := newHandler(nil, Quota{
		Route:  domain.MustRoutePattern("orders", `^/orders$`, http.MethodPost),
		Limit:  0,
		Window: time.Minute,
	})

	w := do(h, http.MethodGet, "/orders", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get(domain.HeaderLimit))
	require.Equal(t, 1, *calls)
}

func TestQuotas_MostSpecificRouteWins(t *testing.T) {
	q := NewQuotas([]Quota{
		{Route: domain.MustRoutePattern("guild", `^/guild/[0-9]+`, ""), Limit: 50, Window: time.Minute},
		{Route: domain.MustRoutePattern("messages", `^/guild/[0-9]+/messages$`, ""), Limit: 5, Window: 5 * time.Second},
	}, WithClock(func() time.Time { return t0 }))

	dec, ok := q.Take("k", "/guild/1/messages", http.MethodPost)
	require.True(t, ok)
	require.Equal(t, "messages", dec.Route)
	require.Equal(t, 4, dec.Remaining)

	dec, ok = q.Take("k", "/guild/1", http.MethodGet)
	require.True(t, ok)
	require.Equal(t, "guild", dec.Route)

	_, ok = q.Take("k", "/other", http.MethodGet)
	require.False(t, ok)
}

func TestQuotas_CleanupRemovesIdleWindows(t *testing.T) {
	now := t0
	q := NewQuotas([]Quota{
		{Route: domain.MustRoutePattern("orders", `^/orders$`, ""), Limit: 1, Window: time.Minute},
	}, WithClock(func() time.Time { return now }), WithIdleTTL(5*time.Minute), WithCleanupEvery(0))

	for i := 0; i < 100; i++ {
		_, ok := q.Take("key-"+strconv.Itoa(i), "/orders", http.MethodGet)
		require.True(t, ok)
	}
	require.Equal(t, 100, q.Len())

	// janela ainda ativa: nada sai
	q.Cleanup()
	require.Equal(t, 100, q.Len())

	// janela encerrada mas dentro do idleTTL
	now = t0.Add(2 * time.Minute)
	q.Cleanup()
	require.Equal(t, 100, q.Len())

	now = t0.Add(6 * time.Minute)
	_, _ = q.Take("key-0", "/orders", http.MethodGet)
	q.Cleanup()
	require.Equal(t, 1, q.Len())

	dec, ok := q.Take("key-1", "/orders", http.MethodGet)
	require.True(t, ok)
	require.True(t, dec.Allowed)
}
