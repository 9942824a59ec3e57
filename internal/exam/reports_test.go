package exam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T, store Store, studentID, examID string, total, correct int) {
	t.Helper()
	_, _, err := store.AppendAttempt(context.Background(), AppendInput{
		StudentID:      studentID,
		ExamID:         examID,
		ExamTitle:      "Exam " + examID,
		Policy:         Unlimited(),
		TotalQuestions: total,
		CorrectAnswers: correct,
		SubmittedAt:    testNow,
	})
	require.NoError(t, err)
}

func newReportService(t *testing.T) *Service {
	t.Helper()
	store := NewInMemoryStore()
	seedLedger(t, store, "ann", "e1", 10, 9)
	seedLedger(t, store, "ann", "e2", 10, 7) // 16/20 = 0.8
	seedLedger(t, store, "bob", "e1", 4, 1)  // 0.25
	seedLedger(t, store, "cid", "e1", 5, 5)  // 1.0
	seedLedger(t, store, "ghost", "e1", 5, 5)
	dir := staticDirectory{
		"ann": {ID: "ann", Name: "Ann", Email: "ann@example.test"},
		"bob": {ID: "bob", Name: "Bob", Email: "bob@example.test"},
		"cid": {ID: "cid", Name: "Cid", Email: "cid@example.test"},
		"dee": {ID: "dee", Name: "Dee", Email: "dee@example.test"},
	}
	return NewService(store, Options{Directory: dir, Now: func() time.Time { return testNow }})
}

func TestService_Rankings(t *testing.T) {
	svc := newReportService(t)
	ctx := context.Background()

	r, err := svc.Rankings(ctx)
	require.NoError(t, err)
	require.Len(t, r, 3, "students missing from the directory are skipped")
	assert.Equal(t, []string{"cid", "ann", "bob"}, []string{r[0].StudentID, r[1].StudentID, r[2].StudentID})
	assert.Equal(t, 100, r[0].Percentage)
	assert.Equal(t, 80, r[1].Percentage)
	assert.InDelta(t, 0.8, r[1].Score, 1e-9)
	assert.Equal(t, "Ann", r[1].Name)
	assert.Equal(t, 25, r[2].Percentage)

	top, err := svc.TopPerformers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "cid", top[0].StudentID)

	top, err = svc.TopPerformers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, 3)

	rank, err := svc.StudentRank(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, rank.Rank)
	assert.Equal(t, "Bob", rank.Name)

	_, err = svc.StudentRank(ctx, "dee")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_LedgerReports(t *testing.T) {
	svc := newReportService(t)
	ctx := context.Background()

	me, err := svc.LedgerFor(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", me.Student.Name)
	assert.Len(t, me.Results, 2)
	assert.NotEmpty(t, me.ID)

	empty, err := svc.LedgerFor(ctx, "dee")
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
	assert.NotNil(t, empty.Results)
	assert.Equal(t, "dee@example.test", empty.Student.Email)

	all, err := svc.AllLedgers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hist, err := svc.History(ctx, "ann", "e2")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 7, hist[0].CorrectAnswers)

	parts, err := svc.StudentsByExam(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	best := map[string]int{}
	for _, p := range parts {
		best[p.ID] = p.BestPercentage
	}
	assert.Equal(t, map[string]int{"ann": 90, "bob": 25, "cid": 100}, best)
}

func TestService_ReportsWithoutDirectory(t *testing.T) {
	store := NewInMemoryStore()
	seedLedger(t, store, "x", "e1", 2, 1)
	svc := NewService(store, Options{})

	r, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.Equal(t, "x", r[0].StudentID)
	assert.Equal(t, 50, r[0].Percentage)
}
