package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/courtside/tournament-registration/internal/artifact"
	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/queue"
	"github.com/courtside/tournament-registration/internal/repository"
)

// codeAttempts bounds retries when a generated ticket code collides
// with the unique key.  With 48 random bits a collision is already
// vanishingly unlikely.
const codeAttempts = 5

// IssueParams describes the ticket to create.
type IssueParams struct {
	TournamentID    uint64
	TournamentName  string
	HolderID        uint64
	PlayerID        uint64
	TeamID          *uint64
	PaymentStatus   string
	AmountPaidCents int64
	SessionRef      *string
	PaymentRef      *string
	DiscountCode    *string
	Email           string
}

// TicketService owns the ticket lifecycle: issuance on settlement or
// free registration, check-in, void, refund and email resend.  It does
// not deduplicate issuance; the settlement pipeline's event log guards
// against double issue upstream.
type TicketService struct {
	tickets   TicketStore
	artifacts artifact.Generator
	gateway   GatewayProvider
	publisher TicketPublisher
	log       *logger.Logger
}

func NewTicketService(tickets TicketStore, artifacts artifact.Generator, gateway GatewayProvider, publisher TicketPublisher, log *logger.Logger) *TicketService {
	return &TicketService{tickets: tickets, artifacts: artifacts, gateway: gateway, publisher: publisher, log: log}
}

// Issue creates a ticket with a fresh unique code and its scannable
// artifact, then publishes the notification event.  Notification is
// best-effort; a publish failure is logged and the issued ticket is
// still returned.
func (s *TicketService) Issue(ctx context.Context, p IssueParams) (*model.Ticket, error) {
	var t *model.Ticket
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := newTicketCode()
		if err != nil {
			return nil, err
		}
		art, err := s.artifacts.Generate(code)
		if err != nil {
			return nil, err
		}
		candidate := &model.Ticket{
			Code:            code,
			TournamentID:    p.TournamentID,
			HolderID:        p.HolderID,
			PlayerID:        p.PlayerID,
			TeamID:          p.TeamID,
			Status:          model.TicketValid,
			PaymentStatus:   p.PaymentStatus,
			SessionRef:      p.SessionRef,
			PaymentRef:      p.PaymentRef,
			AmountPaidCents: p.AmountPaidCents,
			DiscountCode:    p.DiscountCode,
			Email:           p.Email,
		}
		err = s.tickets.Insert(ctx, candidate, art)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t = candidate
		break
	}
	if t == nil {
		return nil, repository.ErrConflict
	}
	s.log.Info("ticket issued",
		"ticket_id", t.ID, "code", t.Code, "tournament_id", t.TournamentID,
		"payment_status", t.PaymentStatus, "amount_paid_cents", t.AmountPaidCents)

	if s.publisher != nil {
		ev := queue.TicketIssuedEvent{
			TicketID:        t.ID,
			Code:            t.Code,
			TournamentID:    t.TournamentID,
			TournamentName:  p.TournamentName,
			HolderID:        t.HolderID,
			PlayerID:        t.PlayerID,
			Email:           t.Email,
			PaymentStatus:   t.PaymentStatus,
			AmountPaidCents: t.AmountPaidCents,
			IssuedAt:        time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishTicketIssued(ctx, ev); err != nil {
			s.log.Warn("ticket notification publish failed", "ticket_id", t.ID, "error", err)
		}
	}
	return t, nil
}

// CheckIn transitions a valid ticket to checked_in on behalf of the
// operator.  Double check-in fails with repository.ErrInvalidState.
func (s *TicketService) CheckIn(ctx context.Context, ticketID, operatorID uint64) error {
	if err := s.tickets.CheckIn(ctx, ticketID, operatorID, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("ticket checked in", "ticket_id", ticketID, "operator_id", operatorID)
	return nil
}

// Void voids a ticket and releases its registration slot.
func (s *TicketService) Void(ctx context.Context, ticketID uint64) error {
	if err := s.tickets.VoidAndRelease(ctx, ticketID); err != nil {
		return err
	}
	s.log.Info("ticket voided", "ticket_id", ticketID)
	return nil
}

// Refund refunds a paid ticket through the gateway.  amountCents of
// zero refunds the full amount; anything above what was paid fails with
// ErrInvalidAmount before any gateway call.  The local state flips only
// after the gateway accepts the refund, so a gateway failure leaves the
// ticket untouched and the external refund is never double-applied.
func (s *TicketService) Refund(ctx context.Context, ticketID uint64, amountCents int64, reason string) error {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !t.Refundable() {
		return repository.ErrInvalidState
	}
	if amountCents < 0 || amountCents > t.AmountPaidCents {
		return ErrInvalidAmount
	}
	gw, err := s.gateway()
	if err != nil {
		return ErrGatewayUnavailable
	}
	if err := gw.CreateRefund(*t.PaymentRef, amountCents, reason); err != nil {
		s.log.Error("gateway refund failed", "ticket_id", ticketID, "error", err)
		return err
	}
	if err := s.tickets.MarkRefunded(ctx, ticketID); err != nil {
		// The external refund went through but the local flip lost a
		// race; surface it for operator reconciliation.
		s.log.Error("refund issued but state transition failed", "ticket_id", ticketID, "error", err)
		return err
	}
	s.log.Info("ticket refunded", "ticket_id", ticketID, "amount_cents", amountCents)
	return nil
}

// ApplyRefund marks the ticket behind a payment reference as refunded
// without calling the gateway; the gateway already executed the refund
// and is notifying us.  An already-refunded ticket is a no-op so
// duplicate or late notifications settle quietly.
func (s *TicketService) ApplyRefund(ctx context.Context, paymentRef string) error {
	t, err := s.tickets.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}
	err = s.tickets.MarkRefunded(ctx, t.ID)
	if errors.Is(err, repository.ErrInvalidState) {
		s.log.Info("refund notification for already-settled ticket", "ticket_id", t.ID)
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("ticket refunded via gateway notification", "ticket_id", t.ID)
	return nil
}

// GetBySessionRef returns the ticket issued for a checkout session.
func (s *TicketService) GetBySessionRef(ctx context.Context, sessionRef string) (*model.Ticket, error) {
	return s.tickets.GetBySessionRef(ctx, sessionRef)
}

// ResendEmail republishes the notification event for the holder's own
// ticket and bumps the resend counter.  A ticket owned by someone else
// reports not found rather than forbidden so ticket ids cannot be
// probed.
func (s *TicketService) ResendEmail(ctx context.Context, ticketID, holderID uint64) error {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if t.HolderID != holderID {
		return repository.ErrNotFound
	}
	if t.Email == "" {
		return repository.ErrInvalidState
	}
	if s.publisher != nil {
		ev := queue.TicketIssuedEvent{
			TicketID:        t.ID,
			Code:            t.Code,
			TournamentID:    t.TournamentID,
			HolderID:        t.HolderID,
			PlayerID:        t.PlayerID,
			Email:           t.Email,
			PaymentStatus:   t.PaymentStatus,
			AmountPaidCents: t.AmountPaidCents,
			IssuedAt:        time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishTicketIssued(ctx, ev); err != nil {
			s.log.Warn("resend publish failed", "ticket_id", t.ID, "error", err)
		}
	}
	return s.tickets.IncrementEmailResend(ctx, ticketID)
}

// ListByHolder returns the holder's tickets with tournament names
// joined in, most recent first.
func (s *TicketService) ListByHolder(ctx context.Context, holderID uint64) ([]repository.TicketDetail, error) {
	return s.tickets.ListByHolder(ctx, holderID)
}

// newTicketCode builds a human-readable unique code such as
// TKT-3F07C2A19B4D.
func newTicketCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "TKT-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
