// Package queue defines message payloads exchanged over the message
// broker plus the publisher and consumer that move them.
package queue

// TicketIssuedEvent is published when a ticket is issued, whether paid
// or free.  It carries enough information for downstream consumers to
// send the confirmation mail without querying the primary database.
type TicketIssuedEvent struct {
	TicketID        uint64 `json:"ticket_id"`
	Code            string `json:"code"`
	TournamentID    uint64 `json:"tournament_id"`
	TournamentName  string `json:"tournament_name"`
	HolderID        uint64 `json:"holder_id"`
	PlayerID        uint64 `json:"player_id"`
	Email           string `json:"email"`
	PaymentStatus   string `json:"payment_status"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	IssuedAt        string `json:"issued_at"`
}
