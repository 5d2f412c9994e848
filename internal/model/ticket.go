package model

import "time"

// Ticket status values.  valid and checked_in are live states; refunded
// and void are terminal and mutually exclusive with each other.  A
// ticket that was checked in can still be refunded or voided afterwards.
const (
	TicketValid     = "valid"
	TicketCheckedIn = "checked_in"
	TicketRefunded  = "refunded"
	TicketVoid      = "void"
)

// Payment status values for a ticket.
const (
	PaymentPaid     = "paid"
	PaymentFree     = "free"
	PaymentRefunded = "refunded"
)

// Ticket is the durable outcome of a settled registration.  Tickets are
// issued by the settlement pipeline for paid registrations or directly
// for free tournaments, and are never deleted.
//
// Fields:
//  ID               – primary key identifier.
//  Code             – unique human-readable ticket code.
//  TournamentID     – tournament the ticket admits to.
//  HolderID         – account that completed the registration.
//  PlayerID         – registered player.
//  TeamID           – optional team the player registered under.
//  Status           – ticket state (valid, checked_in, refunded, void).
//  PaymentStatus    – how the ticket was paid for (paid, free, refunded).
//  SessionRef       – external checkout session that produced the ticket.
//  PaymentRef       – external payment reference used for refunds.
//  AmountPaidCents  – amount actually settled, after discounts.
//  DiscountCode     – discount code consumed at settlement, if any.
//  Email            – notification address captured at checkout.
//  CheckedInAt      – check-in timestamp, nil until checked in.
//  CheckedInBy      – staff member who performed the check-in.
//  EmailResendCount – number of times the confirmation mail was resent.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Ticket struct {
	ID               uint64     // tickets.id
	Code             string     // tickets.code
	TournamentID     uint64     // tickets.tournament_id
	HolderID         uint64     // tickets.holder_id
	PlayerID         uint64     // tickets.player_id
	TeamID           *uint64    // tickets.team_id (nullable)
	Status           string     // tickets.status
	PaymentStatus    string     // tickets.payment_status
	SessionRef       *string    // tickets.session_ref (nullable)
	PaymentRef       *string    // tickets.payment_ref (nullable)
	AmountPaidCents  int64      // tickets.amount_paid_cents
	DiscountCode     *string    // tickets.discount_code (nullable)
	Email            string     // tickets.email
	CheckedInAt      *time.Time // tickets.checked_in_at (nullable)
	CheckedInBy      *uint64    // tickets.checked_in_by (nullable)
	EmailResendCount int        // tickets.email_resend_count
	CreatedAt        time.Time  // tickets.created_at
	UpdatedAt        time.Time  // tickets.updated_at
}

// CanCheckIn reports whether the ticket is eligible for check-in.
// Derived from status at read time; double check-in is rejected because
// checked_in is not a valid source state.
func (t *Ticket) CanCheckIn() bool {
	return t.Status == TicketValid
}

// Refundable reports whether a refund may even be attempted: the ticket
// must have been paid and must carry a payment reference to refund
// against.  Amount validation happens at the call site.
func (t *Ticket) Refundable() bool {
	return t.PaymentStatus == PaymentPaid && t.PaymentRef != nil && *t.PaymentRef != ""
}
