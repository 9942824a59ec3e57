package syncx

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/studentexam/internal/db"
	"github.com/mind-engage/studentexam/internal/exam"
)

var sampleEvent = exam.AttemptRecorded{
	AttemptID:     "att-1",
	LedgerID:      "led-1",
	StudentID:     "s1",
	ExamID:        "e1",
	AttemptNumber: 2,
	Score:         3,
	Total:         5,
	Percentage:    60,
	Passed:        true,
	SubmittedAt:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
}

func TestEventRepo_AttemptRecorded(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	conn, err := db.Open(ctx, db.DriverSQLite, dsn, db.Pool{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repo := NewEventRepo(conn, "")
	require.NoError(t, repo.AttemptRecorded(ctx, sampleEvent))
	second := sampleEvent
	second.AttemptID = "att-2"
	require.NoError(t, repo.AttemptRecorded(ctx, second))

	events, err := repo.After(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "local", events[0].SiteID)
	assert.Equal(t, TypeAttemptRecorded, events[0].Type)
	assert.Equal(t, "att-1", events[0].Key)
	assert.Equal(t, sampleEvent.SubmittedAt.UnixMilli(), events[0].CreatedAt)
	assert.Less(t, events[0].Seq, events[1].Seq)

	var decoded exam.AttemptRecorded
	require.NoError(t, json.Unmarshal([]byte(events[0].DataJSON), &decoded))
	assert.Equal(t, sampleEvent.ExamID, decoded.ExamID)
	assert.Equal(t, 2, decoded.AttemptNumber)

	rest, err := repo.After(ctx, events[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "att-2", rest[0].Key)
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPPublisher_AttemptRecorded(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "studentexam.events")

	require.NoError(t, p.AttemptRecorded(context.Background(), sampleEvent))
	assert.Equal(t, "studentexam.events", ch.exchange)
	assert.Equal(t, TypeAttemptRecorded, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "att-1", ch.msg.MessageId)

	var decoded exam.AttemptRecorded
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, sampleEvent.StudentID, decoded.StudentID)
	assert.NoError(t, p.Close())
}

type sinkFunc func(context.Context, exam.AttemptRecorded) error

func (f sinkFunc) AttemptRecorded(ctx context.Context, ev exam.AttemptRecorded) error { return f(ctx, ev) }

func TestMulti(t *testing.T) {
	var calls int
	ok := sinkFunc(func(context.Context, exam.AttemptRecorded) error { calls++; return nil })
	boom := errors.New("boom")
	bad := sinkFunc(func(context.Context, exam.AttemptRecorded) error { calls++; return boom })

	require.NoError(t, Multi{ok, ok}.AttemptRecorded(context.Background(), sampleEvent))
	assert.Equal(t, 2, calls)

	err := Multi{bad, ok}.AttemptRecorded(context.Background(), sampleEvent)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "later sinks still run")
}
