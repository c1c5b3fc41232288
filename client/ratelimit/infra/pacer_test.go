package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacer_SameHostReturnsSameLimiter(t *testing.T) {
	p := NewPacer(10, 1)
	require.Same(t, p.Limiter("api.example"), p.Limiter("api.example"))
	require.NotSame(t, p.Limiter("api.example"), p.Limiter("other.example"))
}

func TestPacer_WaitHonoursContext(t *testing.T) {
	p := NewPacer(0.02, 1)

	require.NoError(t, p.Wait(context.Background(), "api.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, p.Wait(ctx, "api.example"), "second token is ~50s away")
}

func TestPacer_CleanupRemovesIdleHosts(t *testing.T) {
	p := NewPacer(10, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := p.Limiter("api.example")
	time.Sleep(4 * time.Millisecond)

	p.Cleanup()

	require.NotSame(t, before, p.Limiter("api.example"), "expected limiter to be recreated after cleanup")
}
