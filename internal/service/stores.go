package service

import (
	"context"
	"time"

	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/payment"
	"github.com/courtside/tournament-registration/internal/queue"
	"github.com/courtside/tournament-registration/internal/repository"
)

// Storage interfaces consumed by the services.  The MySQL repositories
// implement them; tests substitute in-memory fakes.  Each method is an
// atomic unit of work, so the services never compose transactions
// themselves.

type TournamentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Tournament, error)
	Availability(ctx context.Context, id uint64, now time.Time) (*repository.Availability, error)
}

type ReservationStore interface {
	Hold(ctx context.Context, tournamentID, holderID, playerID uint64, ttl time.Duration) (*model.Reservation, error)
	CancelActive(ctx context.Context, tournamentID, holderID uint64) error
	GetActive(ctx context.Context, tournamentID, holderID uint64) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	AttachSession(ctx context.Context, id uint64, sessionRef string) error
	CompleteAndRegister(ctx context.Context, reservationID, tournamentID uint64, sessionRef string) (bool, error)
	ExpireAndRelease(ctx context.Context, id uint64) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type TicketStore interface {
	Insert(ctx context.Context, t *model.Ticket, artifact []byte) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	GetByPaymentRef(ctx context.Context, ref string) (*model.Ticket, error)
	GetBySessionRef(ctx context.Context, ref string) (*model.Ticket, error)
	CheckIn(ctx context.Context, id, operatorID uint64, at time.Time) error
	VoidAndRelease(ctx context.Context, id uint64) error
	MarkRefunded(ctx context.Context, id uint64) error
	IncrementEmailResend(ctx context.Context, id uint64) error
	ListByHolder(ctx context.Context, holderID uint64) ([]repository.TicketDetail, error)
}

type DiscountStore interface {
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	Redeem(ctx context.Context, code string) error
}

type EventLog interface {
	Claim(ctx context.Context, externalEventID, kind string) (bool, error)
	RecordOutcome(ctx context.Context, externalEventID, context string, procErr error) error
	CountFailedSince(ctx context.Context, since time.Time) (int, error)
}

// GatewayProvider resolves the payment gateway at call time.  Wiring
// passes payment.Default so an instance configured after startup is
// picked up; tests pass a closure over a fake.
type GatewayProvider func() (payment.Gateway, error)

// TicketPublisher pushes ticket events to the broker.  May be nil when
// no broker is configured; issuance proceeds without notification.
type TicketPublisher interface {
	PublishTicketIssued(ctx context.Context, event queue.TicketIssuedEvent) error
}
