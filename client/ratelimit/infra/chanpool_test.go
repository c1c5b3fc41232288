package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChanPool_BlocksWhenFull(t *testing.T) {
	pool := NewChanPool(1)

	release, ok := pool.Acquire(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok = pool.Acquire(ctx)
	require.False(t, ok)

	release()
	release() // idempotente

	release2, ok := pool.Acquire(context.Background())
	require.True(t, ok)
	release2()
}
