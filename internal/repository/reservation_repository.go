package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/courtside/tournament-registration/internal/model"
)

// ReservationRepo provides data access to capacity holds.  Every
// multi-statement operation runs inside its own transaction so the
// status transition and the counter mutation it justifies land
// atomically.  Status changes are expressed as conditional UPDATEs on
// the current status, never as read-modify-write pairs: two holds, a
// hold and a sweep, or a cancel and a settlement can always race, and
// whichever conditional transition lands first on the active row wins.
// All timestamps are stored and compared in UTC.
type ReservationRepo struct {
	db          *sql.DB
	tournaments *TournamentRepo
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, tournaments *TournamentRepo) *ReservationRepo {
	return &ReservationRepo{db: db, tournaments: tournaments}
}

const reservationColumns = `id, tournament_id, holder_id, player_id, status, expires_at,
	session_ref, created_at, updated_at`

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	var res model.Reservation
	var sessionRef sql.NullString
	err := row.Scan(
		&res.ID, &res.TournamentID, &res.HolderID, &res.PlayerID, &res.Status,
		&res.ExpiresAt, &sessionRef, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sessionRef.Valid {
		ref := sessionRef.String
		res.SessionRef = &ref
	}
	return &res, nil
}

// Hold creates a new active reservation for (tournament, holder).  In a
// single transaction it: locks the tournament row, cancels any prior
// active hold for the same pair (releasing its reserved slot), counts
// the active non-expired holds, rejects with ErrCapacityExceeded when
// registered + active holds have reached capacity, and finally inserts
// the new hold while incrementing spots_reserved.  The FOR UPDATE lock
// on the tournament row serializes concurrent holds so two requests for
// the last slot cannot both succeed.
//
// Expired-but-unswept holds are excluded from the capacity count here;
// their reserved counter is reconciled later by the sweep.
func (r *ReservationRepo) Hold(ctx context.Context, tournamentID, holderID, playerID uint64, ttl time.Duration) (*model.Reservation, error) {
	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := r.tournaments.GetByIDTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	// Cancel a previous active hold for this pair, releasing its slot.
	const cancelQ = `UPDATE reservations SET status = ?
	                 WHERE tournament_id = ? AND holder_id = ? AND status = ?`
	cancelRes, err := tx.ExecContext(ctx, cancelQ, model.ReservationCancelled, tournamentID, holderID, model.ReservationActive)
	if err != nil {
		return nil, err
	}
	if n, _ := cancelRes.RowsAffected(); n > 0 {
		if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, 0, -int(n)); err != nil {
			return nil, err
		}
	}

	// Capacity check against active, non-expired holds only.
	const countQ = `SELECT COUNT(*) FROM reservations
	                WHERE tournament_id = ? AND status = ? AND expires_at > ?`
	var active int
	if err := tx.QueryRowContext(ctx, countQ, tournamentID, model.ReservationActive, now).Scan(&active); err != nil {
		return nil, err
	}
	if t.RegisteredCount+active >= t.MaxCapacity {
		return nil, ErrCapacityExceeded
	}

	expiresAt := now.Add(ttl)
	const insQ = `INSERT INTO reservations (tournament_id, holder_id, player_id, status, expires_at)
	              VALUES (?, ?, ?, ?, ?)`
	ins, err := tx.ExecContext(ctx, insQ, tournamentID, holderID, playerID, model.ReservationActive, expiresAt)
	if err != nil {
		return nil, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, 0, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &model.Reservation{
		ID:           uint64(id),
		TournamentID: tournamentID,
		HolderID:     holderID,
		PlayerID:     playerID,
		Status:       model.ReservationActive,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CancelActive cancels the holder's active reservation for a tournament
// and releases its reserved slot in the same transaction.  ErrNotFound
// is returned when no active reservation exists.  A hold that is past
// its expiry but not yet swept still releases its counter here, since
// the sweep only touches rows whose status is still active.
func (r *ReservationRepo) CancelActive(ctx context.Context, tournamentID, holderID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE reservations SET status = ?
	           WHERE tournament_id = ? AND holder_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.ReservationCancelled, tournamentID, holderID, model.ReservationActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, 0, -int(n)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetActive returns the holder's active, non-expired reservation for a
// tournament, or ErrNotFound when there is none.  An active row whose
// expiry has passed is never returned, even before the sweeper runs.
func (r *ReservationRepo) GetActive(ctx context.Context, tournamentID, holderID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE tournament_id = ? AND holder_id = ? AND status = ? AND expires_at > ?
	           ORDER BY id DESC LIMIT 1`
	return scanReservation(r.db.QueryRowContext(ctx, q, tournamentID, holderID, model.ReservationActive, time.Now().UTC()))
}

// GetByID returns a reservation by primary key.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// AttachSession binds an external checkout session reference to an
// active reservation.  ErrInvalidState is returned when the reservation
// is no longer active (it expired or was cancelled under the caller).
func (r *ReservationRepo) AttachSession(ctx context.Context, id uint64, sessionRef string) error {
	const q = `UPDATE reservations SET session_ref = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, sessionRef, id, model.ReservationActive)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// CompleteAndRegister settles a reservation: in one transaction the
// reservation (when present and still active) moves to completed, the
// tournament's registered counter is incremented, and the reserved
// counter is decremented only when the reservation row was still
// active.  The reserved decrement is skipped when the hold had already
// been swept or cancelled, because that transition released the slot
// when it happened; decrementing again would double-count capacity.
//
// reservationID may be zero when settlement arrives for a session whose
// hold can no longer be resolved; registration still proceeds.
// The returned flag reports whether the reservation row was transitioned.
func (r *ReservationRepo) CompleteAndRegister(ctx context.Context, reservationID, tournamentID uint64, sessionRef string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	wasActive := false
	if reservationID != 0 {
		const q = `UPDATE reservations SET status = ?, session_ref = ?
		           WHERE id = ? AND status = ?`
		res, err := tx.ExecContext(ctx, q, model.ReservationCompleted, sessionRef, reservationID, model.ReservationActive)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		wasActive = n == 1
	}
	reservedDelta := 0
	if wasActive {
		reservedDelta = -1
	}
	if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, 1, reservedDelta); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return wasActive, nil
}

// ExpireAndRelease moves a reservation to expired and releases its
// reserved slot, in one transaction.  Only a row that is still active
// is touched; a concurrent complete or cancel wins the race because it
// already moved the row out of active, in which case this is a no-op
// and the returned flag is false.
func (r *ReservationRepo) ExpireAndRelease(ctx context.Context, id uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var tournamentID uint64
	const selQ = `SELECT tournament_id FROM reservations WHERE id = ? AND status = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, selQ, id, model.ReservationActive).Scan(&tournamentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	const updQ = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	if _, err := tx.ExecContext(ctx, updQ, model.ReservationExpired, id, model.ReservationActive); err != nil {
		return false, err
	}
	if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, 0, -1); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// SweepExpired transitions every active reservation past its expiry to
// expired and decrements each affected tournament's reserved counter by
// the number of holds swept for it, all in one transaction.  Rows are
// locked first so a concurrent complete or cancel either finished
// before the lock (and is not selected) or waits until the sweep
// commits (and then finds the row no longer active).  Returns the
// number of reservations swept.
func (r *ReservationRepo) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const selQ = `SELECT id, tournament_id FROM reservations
	              WHERE status = ? AND expires_at <= ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, selQ, model.ReservationActive, now.UTC())
	if err != nil {
		return 0, err
	}
	perTournament := make(map[uint64]int)
	var ids []interface{}
	for rows.Next() {
		var id, tid uint64
		if scanErr := rows.Scan(&id, &tid); scanErr != nil {
			rows.Close()
			return 0, scanErr
		}
		ids = append(ids, id)
		perTournament[tid]++
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	query := `UPDATE reservations SET status = ? WHERE status = ? AND id IN (?`
	args := []interface{}{model.ReservationExpired, model.ReservationActive, ids[0]}
	for _, id := range ids[1:] {
		query += ",?"
		args = append(args, id)
	}
	query += ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	for tid, n := range perTournament {
		if err := r.tournaments.AdjustCountersTx(ctx, tx, tid, 0, -n); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return len(ids), nil
}
