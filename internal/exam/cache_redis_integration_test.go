//go:build integration

package exam

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) string {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, redisC.Terminate(ctx)) })

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

// countingExams counts repository reads behind the cache.
type countingExams struct {
	ExamRepository
	reads int
}

func (c *countingExams) GetExam(ctx context.Context, id string) (Exam, error) {
	c.reads++
	return c.ExamRepository.GetExam(ctx, id)
}

func TestCachedExams_ReadThrough(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: startRedis(ctx, t)})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewInMemoryStore()
	require.NoError(t, store.PutExam(ctx, sampleExam("e1")))
	backing := &countingExams{ExamRepository: store}
	cache := NewCachedExams(backing, rdb, time.Minute)

	first, err := cache.GetExam(ctx, "e1")
	require.NoError(t, err)
	second, err := cache.GetExam(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.reads)
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, "a", second.Questions[0].CorrectAnswer)

	ttl, err := rdb.TTL(ctx, "exam:e1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, "e1"))
	_, err = cache.GetExam(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.reads)

	_, err = cache.GetExam(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
