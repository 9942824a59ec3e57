package exam

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedExams_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewInMemoryStore()
	require.NoError(t, store.PutExam(ctx, sampleExam("e1")))
	cache := NewCachedExams(store, rdb, 0)

	got, err := cache.GetExam(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	list, total, err := cache.ListAvailable(ctx, AvailableOpts{Now: testNow, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	assert.NoError(t, cache.Invalidate(ctx))
}
