package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncx "github.com/mind-engage/studentexam/internal/sync"
	"github.com/mind-engage/studentexam/internal/users"
)

type fakeFeed struct {
	events   []syncx.Event
	err      error
	gotAfter int64
	gotLimit int
}

func (f *fakeFeed) After(_ context.Context, after int64, limit int) ([]syncx.Event, error) {
	f.gotAfter, f.gotLimit = after, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []syncx.Event
	for _, e := range f.events {
		if e.Seq > after && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestEvents(t *testing.T) {
	api := newTestAPI(t)
	api.events.events = []syncx.Event{
		{Seq: 1, SiteID: "local", Type: syncx.TypeAttemptRecorded, Key: "at1", DataJSON: `{"attemptNumber":1}`, CreatedAt: 1000},
		{Seq: 2, SiteID: "local", Type: syncx.TypeAttemptRecorded, Key: "at2", DataJSON: `{"attemptNumber":2}`, CreatedAt: 2000},
		{Seq: 3, SiteID: "local", Type: syncx.TypeAttemptRecorded, Key: "at3", DataJSON: `not json`, CreatedAt: 3000},
	}

	rec := api.do(http.MethodGet, "/events?after=1&limit=5", "a1", users.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["nextAfter"])
	evs := body["events"].([]any)
	require.Len(t, evs, 2)
	first := evs[0].(map[string]any)
	assert.Equal(t, "at2", first["key"])
	assert.Equal(t, syncx.TypeAttemptRecorded, first["type"])
	assert.Equal(t, map[string]any{"attemptNumber": float64(2)}, first["data"])
	assert.Nil(t, evs[1].(map[string]any)["data"])
	assert.Equal(t, int64(1), api.events.gotAfter)
	assert.Equal(t, 5, api.events.gotLimit)

	rec = api.do(http.MethodGet, "/events?after=3", "a1", users.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Empty(t, body["events"])
	assert.Equal(t, float64(3), body["nextAfter"])
	assert.Equal(t, 100, api.events.gotLimit)
}

func TestEvents_Access(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		userID string
		role   string
		want   int
	}{
		{"admin", "a1", users.RoleAdmin, http.StatusOK},
		{"instructor", "i1", users.RoleInstructor, http.StatusForbidden},
		{"student", "s1", users.RoleStudent, http.StatusForbidden},
		{"anonymous", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodGet, "/events", tt.userID, tt.role, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestEvents_FeedError(t *testing.T) {
	api := newTestAPI(t)
	api.events.err = errors.New("disk gone")
	rec := api.do(http.MethodGet, "/events", "a1", users.RoleAdmin, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEvents_NotMountedWithoutFeed(t *testing.T) {
	api := newTestAPI(t)
	r := chi.NewRouter()
	Mount(r, Deps{Users: users.NewMemoryRepo(), Auth: api.auth})
	api.router = r
	rec := api.do(http.MethodGet, "/events", "a1", users.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
