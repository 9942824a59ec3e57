package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExam_UnmarshalAppliesDefaults(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want func(t *testing.T, e Exam)
	}{
		{
			name: "minimal document",
			doc:  `{"id":"e9","title":"Minimal","duration":10,"questions":[{"id":"q1","title":"?","correctAnswer":"a"}]}`,
			want: func(t *testing.T, e Exam) {
				assert.Equal(t, VisibilityPublic, e.Visibility)
				assert.Equal(t, 60, e.PassingScore)
				assert.Equal(t, -1, e.MaxAttempts)
				assert.True(t, e.ShowResultsImmediately)
				assert.True(t, e.IsActive)
				assert.Nil(t, e.IsUnlimitedAttempts)
				assert.True(t, e.Policy().IsUnlimited())
				require.Len(t, e.Questions, 1)
			},
		},
		{
			name: "explicit values win",
			doc: `{"id":"e8","visibility":"course_only","courseId":"c1","passingScore":0,"maxAttempts":2,
				"isUnlimitedAttempts":false,"showResultsImmediately":false,"isActive":false}`,
			want: func(t *testing.T, e Exam) {
				assert.Equal(t, VisibilityCourseOnly, e.Visibility)
				assert.Zero(t, e.PassingScore)
				assert.Equal(t, Limited(2), e.Policy())
				assert.False(t, e.ShowResultsImmediately)
				assert.False(t, e.IsActive)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Exam
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &e))
			tt.want(t, e)
		})
	}
}

func TestExam_UnmarshalInsideSlice(t *testing.T) {
	var exams []Exam
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"a"},{"id":"b","isActive":false}]`), &exams))
	require.Len(t, exams, 2)
	assert.True(t, exams[0].IsActive)
	assert.False(t, exams[1].IsActive)
}
