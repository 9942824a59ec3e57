package exam

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedExams is a read-through redis cache in front of an ExamRepository.
// Cache failures are logged and fall back to the repository.
type CachedExams struct {
	next ExamRepository
	rdb  redis.UniversalClient
	ttl  time.Duration
}

func NewCachedExams(next ExamRepository, rdb redis.UniversalClient, ttl time.Duration) *CachedExams {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedExams{next: next, rdb: rdb, ttl: ttl}
}

func examKey(id string) string { return "exam:" + id }

func (c *CachedExams) GetExam(ctx context.Context, id string) (Exam, error) {
	raw, err := c.rdb.Get(ctx, examKey(id)).Bytes()
	switch {
	case err == nil:
		var e Exam
		if jerr := json.Unmarshal(raw, &e); jerr == nil {
			return e, nil
		}
		log.Printf("[exam-cache] corrupt entry for %s, reloading", id)
	case !errors.Is(err, redis.Nil):
		log.Printf("[exam-cache] get %s: %v", id, err)
	}

	e, err := c.next.GetExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	if b, err := json.Marshal(e); err == nil {
		if err := c.rdb.Set(ctx, examKey(id), b, c.ttl).Err(); err != nil {
			log.Printf("[exam-cache] set %s: %v", id, err)
		}
	}
	return e, nil
}

// ListAvailable is not cached; the result depends on the caller and the clock.
func (c *CachedExams) ListAvailable(ctx context.Context, opts AvailableOpts) ([]Exam, int, error) {
	return c.next.ListAvailable(ctx, opts)
}

// Invalidate drops cached exams, e.g. after a seed run rewrites them.
func (c *CachedExams) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = examKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
