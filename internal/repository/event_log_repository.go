package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/courtside/tournament-registration/internal/model"
)

// EventLogRepo is the idempotency boundary for the settlement pipeline.
// An event id is claimed with an INSERT against a unique key before any
// side effect runs; a duplicate-key collision means another delivery of
// the same event already owns it and the current one must be skipped
// entirely.  The outcome (extracted context plus optional error) is
// recorded on the claimed row after dispatch, so a row exists for every
// delivered event whether or not processing succeeded.
type EventLogRepo struct {
	db *sql.DB
}

// NewEventLogRepo returns a new EventLogRepo bound to the given database.
func NewEventLogRepo(db *sql.DB) *EventLogRepo { return &EventLogRepo{db: db} }

// Claim attempts to register the external event id.  It returns true
// when the caller now owns the event and must process it, false when a
// row for the id already exists and the event must be skipped.
func (r *EventLogRepo) Claim(ctx context.Context, externalEventID, kind string) (bool, error) {
	const q = `INSERT INTO processed_events (external_event_id, kind, context, processed_at)
	           VALUES (?, ?, '', ?)`
	_, err := r.db.ExecContext(ctx, q, externalEventID, kind, time.Now().UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RecordOutcome fills in the processing result on a previously claimed
// event row.  procErr may be nil for a successful dispatch.
func (r *EventLogRepo) RecordOutcome(ctx context.Context, externalEventID, context_ string, procErr error) error {
	var errText interface{}
	if procErr != nil {
		errText = procErr.Error()
	}
	const q = `UPDATE processed_events SET context = ?, error = ? WHERE external_event_id = ?`
	_, err := r.db.ExecContext(ctx, q, context_, errText, externalEventID)
	return err
}

// CountFailedSince returns the number of events that were acknowledged
// to the gateway but failed internal processing since the given time.
// Operators are expected to watch this figure: the webhook endpoint
// never signals failure outward, so this is where broken settlements
// surface.
func (r *EventLogRepo) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM processed_events WHERE error IS NOT NULL AND processed_at >= ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, since.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListFailedSince returns the failed event rows behind the count, most
// recent first, capped at limit.
func (r *EventLogRepo) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]model.ProcessedEvent, error) {
	const q = `SELECT id, external_event_id, kind, context, error, processed_at
	           FROM processed_events
	           WHERE error IS NOT NULL AND processed_at >= ?
	           ORDER BY processed_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProcessedEvent
	for rows.Next() {
		var ev model.ProcessedEvent
		if err := rows.Scan(&ev.ID, &ev.ExternalEventID, &ev.Kind, &ev.Context, &ev.Error, &ev.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
