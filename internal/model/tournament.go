package model

import "time"

// Tournament represents an event players can register for.  It carries
// the pricing configuration used at checkout and the two capacity
// counters maintained by the registration pipeline.  RegisteredCount
// reflects settled registrations; SpotsReserved reflects live capacity
// holds and is only ever mutated together with the reservation state
// transition that justifies it.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – display name of the tournament.
//  MaxCapacity        – hard cap on registered + actively reserved slots.
//  EntryFeeCents      – regular entry fee in cents.
//  EarlyBirdFeeCents  – discounted fee while the early-bird window is open.
//  EarlyBirdUntil     – end of the early-bird window (nil when unused).
//  Currency           – ISO currency code sent to the payment gateway.
//  RegisteredCount    – number of settled registrations.
//  SpotsReserved      – number of outstanding capacity holds.
//  Status             – current state of the tournament (OPEN, CLOSED).
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Tournament struct {
	ID                uint64     // tournaments.id
	Name              string     // tournaments.name
	MaxCapacity       int        // tournaments.max_capacity
	EntryFeeCents     int64      // tournaments.entry_fee_cents
	EarlyBirdFeeCents int64      // tournaments.early_bird_fee_cents
	EarlyBirdUntil    *time.Time // tournaments.early_bird_until (nullable)
	Currency          string     // tournaments.currency
	RegisteredCount   int        // tournaments.registered_count
	SpotsReserved     int        // tournaments.spots_reserved
	Status            string     // tournaments.status
	CreatedAt         time.Time  // tournaments.created_at
	UpdatedAt         time.Time  // tournaments.updated_at
}

// EarlyBird reports whether the early-bird fee applies at the given
// instant.  It is evaluated at read time and never stored.
func (t *Tournament) EarlyBird(now time.Time) bool {
	return t.EarlyBirdUntil != nil && now.Before(*t.EarlyBirdUntil)
}

// BasePriceCents returns the fee in effect at the given instant: the
// early-bird fee while the window is open, the regular entry fee after.
func (t *Tournament) BasePriceCents(now time.Time) int64 {
	if t.EarlyBird(now) {
		return t.EarlyBirdFeeCents
	}
	return t.EntryFeeCents
}

// Free reports whether registration costs nothing at the given instant.
// Free tournaments bypass the payment gateway entirely.
func (t *Tournament) Free(now time.Time) bool {
	return t.BasePriceCents(now) == 0
}
