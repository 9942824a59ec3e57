package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/studentexam/internal/sync"
)

// EventFeed reads the outbound event log in sequence order.
type EventFeed interface {
	After(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

type eventItem struct {
	syncx.Event
	Data json.RawMessage `json:"data"`
}

// GET /events?after=&limit=
//
// Tails the event log. Clients pass the last seq they saw as after and
// resume from nextAfter.
func EventsHandler(feed EventFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		if err != nil || after < 0 {
			after = 0
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit < 1 || limit > 1000 {
			limit = 100
		}

		evs, err := feed.After(r.Context(), after, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		items := make([]eventItem, 0, len(evs))
		next := after
		for _, e := range evs {
			data := json.RawMessage(e.DataJSON)
			if !json.Valid(data) {
				data = json.RawMessage("null")
			}
			items = append(items, eventItem{Event: e, Data: data})
			next = e.Seq
		}
		respondJSON(w, http.StatusOK, map[string]any{"events": items, "nextAfter": next})
	}
}
