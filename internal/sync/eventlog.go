package syncx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/studentexam/internal/exam"
)

const TypeAttemptRecorded = "attempt.recorded"

type Event struct {
	Seq       int64  `db:"seq" json:"seq"`
	SiteID    string `db:"site_id" json:"siteId"`
	Type      string `db:"typ" json:"type"`
	Key       string `db:"event_key" json:"key"`
	DataJSON  string `db:"data" json:"-"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// EventRepo is the append-only event_log table.
type EventRepo struct {
	db     *sqlx.DB
	siteID string
}

func NewEventRepo(db *sqlx.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO event_log (site_id, typ, event_key, data, created_at) VALUES (?,?,?,?,?)`),
		e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt)
	return err
}

// After returns up to limit events with seq greater than after, in order.
func (r *EventRepo) After(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Event
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		`SELECT seq, site_id, typ, event_key, data, created_at FROM event_log
		 WHERE seq > ? ORDER BY seq ASC LIMIT ?`), after, limit)
	return out, err
}

func (r *EventRepo) AttemptRecorded(ctx context.Context, ev exam.AttemptRecorded) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.Append(ctx, Event{
		Type:      TypeAttemptRecorded,
		Key:       ev.AttemptID,
		DataJSON:  string(data),
		CreatedAt: ev.SubmittedAt.UnixMilli(),
	})
}
