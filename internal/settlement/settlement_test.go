package settlement

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewMemoryRegistry()
	at := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	settled, err := reg.IsSettled(ctx, "a1")
	require.NoError(t, err)
	require.False(t, settled)

	require.NoError(t, reg.MarkSettled(ctx, "a1", at))
	require.NoError(t, reg.MarkSettled(ctx, "a1", at.Add(time.Hour)))
	require.Equal(t, at, reg.settled["a1"])

	settled, err = reg.IsSettled(ctx, "a1")
	require.NoError(t, err)
	require.True(t, settled)

	settled, err = reg.IsSettled(ctx, "a2")
	require.NoError(t, err)
	require.False(t, settled)

	t.Run("concurrent_marks", func(t *testing.T) {
		t.Parallel()

		reg := NewMemoryRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, reg.MarkSettled(ctx, "hot", at))
				_, err := reg.IsSettled(ctx, "hot")
				require.NoError(t, err)
			}()
		}
		wg.Wait()
		require.Len(t, reg.settled, 1)
	})
}

func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("AUCTION_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUCTION_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	reg, err := NewRedisRegistry(ctx, RedisConfig{Addr: addr, KeyPrefix: "test:settled:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	auctionID := uuid.NewString()
	settled, err := reg.IsSettled(ctx, auctionID)
	require.NoError(t, err)
	require.False(t, settled)

	require.NoError(t, reg.MarkSettled(ctx, auctionID, time.Now()))
	settled, err = reg.IsSettled(ctx, auctionID)
	require.NoError(t, err)
	require.True(t, settled)

	require.NoError(t, reg.rdb.Del(ctx, reg.key(auctionID)).Err())
}
