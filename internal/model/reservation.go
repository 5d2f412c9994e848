package model

import "time"

// Reservation status values.  A reservation starts active and moves to
// exactly one of the terminal states; rows are never deleted so the
// history of holds remains auditable.
const (
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
)

// Reservation is a time-bounded claim on one tournament slot while
// payment is pending.  At most one reservation per (tournament, holder)
// pair may be active at any time; creating a new hold cancels the
// previous active one in the same transaction.
//
// Fields:
//  ID           – primary key identifier.
//  TournamentID – tournament whose capacity is being held.
//  HolderID     – account that requested the hold.
//  PlayerID     – player being registered (may differ from the holder).
//  Status       – state of the hold (active, completed, cancelled, expired).
//  ExpiresAt    – when the hold lapses if never settled.
//  SessionRef   – external checkout session bound to this hold, if any.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Reservation struct {
	ID           uint64    // reservations.id
	TournamentID uint64    // reservations.tournament_id
	HolderID     uint64    // reservations.holder_id
	PlayerID     uint64    // reservations.player_id
	Status       string    // reservations.status
	ExpiresAt    time.Time // reservations.expires_at
	SessionRef   *string   // reservations.session_ref (nullable)
	CreatedAt    time.Time // reservations.created_at
	UpdatedAt    time.Time // reservations.updated_at
}

// IsActive reports whether the hold still counts against capacity at
// the given instant.  An active row past its expiry is already dead for
// admission purposes even if the sweeper has not reclaimed it yet.
func (r *Reservation) IsActive(now time.Time) bool {
	return r.Status == ReservationActive && r.ExpiresAt.After(now)
}

// RemainingSeconds returns how long the hold has left at the given
// instant, floored at zero.  Derived at read time, never stored.
func (r *Reservation) RemainingSeconds(now time.Time) int64 {
	if !r.IsActive(now) {
		return 0
	}
	return int64(r.ExpiresAt.Sub(now).Seconds())
}
