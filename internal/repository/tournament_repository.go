package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/courtside/tournament-registration/internal/model"
)

// TournamentRepo provides read access to tournaments and the counter
// reconciliation used by the registration pipeline.  Tournament CRUD
// itself belongs to another service; this repository only ever reads
// rows and adjusts the registered/reserved counters, and every counter
// mutation happens inside the same transaction as the reservation or
// ticket transition that justifies it.
type TournamentRepo struct {
	db *sql.DB
}

// NewTournamentRepo returns a new TournamentRepo bound to the provided database.
func NewTournamentRepo(db *sql.DB) *TournamentRepo { return &TournamentRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *TournamentRepo) DB() *sql.DB { return r.db }

const tournamentColumns = `id, name, max_capacity, entry_fee_cents, early_bird_fee_cents,
	early_bird_until, currency, registered_count, spots_reserved, status, created_at, updated_at`

func scanTournament(row *sql.Row) (*model.Tournament, error) {
	var t model.Tournament
	var earlyBird sql.NullTime
	err := row.Scan(
		&t.ID, &t.Name, &t.MaxCapacity, &t.EntryFeeCents, &t.EarlyBirdFeeCents,
		&earlyBird, &t.Currency, &t.RegisteredCount, &t.SpotsReserved, &t.Status,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if earlyBird.Valid {
		eb := earlyBird.Time
		t.EarlyBirdUntil = &eb
	}
	return &t, nil
}

// GetByID returns a single tournament. ErrNotFound is returned when no
// tournament with the given id exists.
func (r *TournamentRepo) GetByID(ctx context.Context, id uint64) (*model.Tournament, error) {
	const q = `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`
	return scanTournament(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDTx is GetByID within an existing transaction, locking the row
// with FOR UPDATE.  Hold creation locks the tournament row so that two
// concurrent requests for the last slot are serialized and cannot both
// pass the capacity check.
func (r *TournamentRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Tournament, error) {
	const q = `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ? FOR UPDATE`
	return scanTournament(tx.QueryRowContext(ctx, q, id))
}

// AdjustCountersTx moves the two capacity counters by the given deltas
// inside the caller's transaction.  Callers must pair every delta 1:1
// with the state transition performed in the same transaction.
func (r *TournamentRepo) AdjustCountersTx(ctx context.Context, tx *sql.Tx, id uint64, registeredDelta, reservedDelta int) error {
	const q = `UPDATE tournaments
	           SET registered_count = registered_count + ?, spots_reserved = spots_reserved + ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, registeredDelta, reservedDelta, id)
	return err
}

// Availability is the read projection returned to clients.  Reserved is
// the count of active, non-expired holds computed at read time, not the
// stored counter, so expired-but-unswept holds are not shown as
// occupying capacity.
type Availability struct {
	TournamentID uint64 `json:"tournament_id"`
	MaxCapacity  int    `json:"max_capacity"`
	Registered   int    `json:"registered"`
	Reserved     int    `json:"reserved"`
	Remaining    int    `json:"remaining"`
}

// Availability computes the current capacity picture for a tournament.
func (r *TournamentRepo) Availability(ctx context.Context, id uint64, now time.Time) (*Availability, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	const q = `SELECT COUNT(*) FROM reservations
	           WHERE tournament_id = ? AND status = ? AND expires_at > ?`
	var reserved int
	if err := r.db.QueryRowContext(ctx, q, id, model.ReservationActive, now.UTC()).Scan(&reserved); err != nil {
		return nil, err
	}
	remaining := t.MaxCapacity - t.RegisteredCount - reserved
	if remaining < 0 {
		remaining = 0
	}
	return &Availability{
		TournamentID: t.ID,
		MaxCapacity:  t.MaxCapacity,
		Registered:   t.RegisteredCount,
		Reserved:     reserved,
		Remaining:    remaining,
	}, nil
}
