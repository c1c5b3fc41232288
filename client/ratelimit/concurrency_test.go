package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ratelimit-client/client/ratelimit/application"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     http.Header{},
	}, nil
}

func TestConcurrencyTransport_SlotHeldUntilBodyClosed(t *testing.T) {
	rt := NewConcurrencyTransport(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
		Base:           roundTripFunc(okResponse),
	})

	req := httptest.NewRequest(http.MethodGet, "http://example/orders", nil)

	resp1, err := rt.RoundTrip(req)
	require.NoError(t, err)

	// primeira resposta ainda aberta: segunda não consegue vaga
	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, ErrNoSlot)
	require.ErrorIs(t, err, application.ErrAcquireTimeout)
	require.Equal(t, int64(1), rt.(*ConcurrencyTransport).InFlight())

	require.NoError(t, resp1.Body.Close())
	require.NoError(t, resp1.Body.Close())
	require.Zero(t, rt.(*ConcurrencyTransport).InFlight())

	resp3, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.NoError(t, resp3.Body.Close())
}

func TestConcurrencyTransport_ReleasesOnError(t *testing.T) {
	var calls atomic.Int32
	rt := NewConcurrencyTransport(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("dial failed")
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	for n := 0; n < 3; n++ {
		_, err := rt.RoundTrip(req)
		require.EqualError(t, err, "dial failed")
	}
	require.Equal(t, int32(3), calls.Load())
}

func TestConcurrencyTransport_CancelledContext(t *testing.T) {
	rt := NewConcurrencyTransport(ConcurrencyOptions{Max: 1, Base: roundTripFunc(okResponse)})

	req := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rt.RoundTrip(req.WithContext(ctx))
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrNoSlot)
}

func TestConcurrencyTransport_DisabledReturnsBase(t *testing.T) {
	base := roundTripFunc(okResponse)
	rt := NewConcurrencyTransport(ConcurrencyOptions{Base: base})
	_, isLimited := rt.(*ConcurrencyTransport)
	require.False(t, isLimited)
}
