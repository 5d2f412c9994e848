package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/payment"
	"github.com/courtside/tournament-registration/internal/repository"
)

// SettlementService consumes verified gateway events and drives the
// reservation, ticket and discount transitions behind the event log's
// idempotency guard.  Process reports internal failures to its caller,
// but the webhook endpoint still acknowledges receipt; the gateway
// retrying cannot fix state that is already inconsistent, so failures
// are recorded for operator follow-up instead.
type SettlementService struct {
	reservations ReservationStore
	tournaments  TournamentStore
	tickets      *TicketService
	discounts    *DiscountService
	events       EventLog
	log          *logger.Logger
}

func NewSettlementService(
	reservations ReservationStore,
	tournaments TournamentStore,
	tickets *TicketService,
	discounts *DiscountService,
	events EventLog,
	log *logger.Logger,
) *SettlementService {
	return &SettlementService{
		reservations: reservations,
		tournaments:  tournaments,
		tickets:      tickets,
		discounts:    discounts,
		events:       events,
		log:          log,
	}
}

// Process runs one verified event through the pipeline.  The event id
// is claimed in the log before any side effect; a duplicate delivery
// finds the id already claimed and is skipped entirely, never re-running
// any side effect.  The outcome is recorded on the claimed row whether
// dispatch succeeded or failed.
func (s *SettlementService) Process(ctx context.Context, ev *payment.Event) error {
	claimed, err := s.events.Claim(ctx, ev.ID, ev.Kind)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", ev.ID, err)
	}
	if !claimed {
		s.log.Info("duplicate event delivery skipped", "event_id", ev.ID, "kind", ev.Kind)
		return nil
	}

	outcome, procErr := s.dispatch(ctx, ev)
	if recErr := s.events.RecordOutcome(ctx, ev.ID, outcome, procErr); recErr != nil {
		s.log.Error("failed to record event outcome", "event_id", ev.ID, "error", recErr)
	}
	if procErr != nil {
		s.log.Error("event processing failed", "event_id", ev.ID, "kind", ev.Kind, "error", procErr)
	}
	return procErr
}

// FailedSince reports how many acknowledged events failed internal
// processing since the given time.  The webhook endpoint never signals
// failure outward, so alerting watches this figure.
func (s *SettlementService) FailedSince(ctx context.Context, since time.Time) (int, error) {
	return s.events.CountFailedSince(ctx, since)
}

func (s *SettlementService) dispatch(ctx context.Context, ev *payment.Event) (string, error) {
	switch ev.Kind {
	case payment.EventCheckoutCompleted:
		return s.handleCompleted(ctx, ev)
	case payment.EventCheckoutExpired:
		return s.handleExpired(ctx, ev)
	case payment.EventChargeRefunded:
		return s.handleRefunded(ctx, ev)
	default:
		s.log.Info("unrecognized event kind ignored", "event_id", ev.ID, "kind", ev.Kind)
		return "ignored: unrecognized kind", nil
	}
}

// completedMetadata is the context a completed-checkout event must echo
// back.  reservation_id may legitimately be absent when the session was
// created out of band; everything else is required.
type completedMetadata struct {
	ReservationID uint64
	TournamentID  uint64
	HolderID      uint64
	PlayerID      uint64
	TeamID        *uint64
	DiscountCode  string
	Email         string
}

func parseCompletedMetadata(md map[string]string) (*completedMetadata, error) {
	out := &completedMetadata{
		DiscountCode: md["discount_code"],
		Email:        md["email"],
	}
	var err error
	if out.TournamentID, err = requiredID(md, "tournament_id"); err != nil {
		return nil, err
	}
	if out.HolderID, err = requiredID(md, "holder_id"); err != nil {
		return nil, err
	}
	if out.PlayerID, err = requiredID(md, "player_id"); err != nil {
		return nil, err
	}
	if raw, ok := md["reservation_id"]; ok && raw != "" {
		if out.ReservationID, err = parseID("reservation_id", raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := md["team_id"]; ok && raw != "" {
		id, err := parseID("team_id", raw)
		if err != nil {
			return nil, err
		}
		out.TeamID = &id
	}
	return out, nil
}

func requiredID(md map[string]string, key string) (uint64, error) {
	raw, ok := md[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: missing metadata key %s", ErrValidationFailed, key)
	}
	return parseID(key, raw)
}

func parseID(key, raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed metadata key %s", ErrValidationFailed, key)
	}
	return id, nil
}

func (s *SettlementService) handleCompleted(ctx context.Context, ev *payment.Event) (string, error) {
	md, err := parseCompletedMetadata(ev.Metadata)
	if err != nil {
		return "", err
	}

	// A replayed session under a fresh event id slips past the event
	// log; the existing ticket for the session is the backstop.
	if ev.SessionRef != "" {
		if existing, err := s.tickets.GetBySessionRef(ctx, ev.SessionRef); err == nil {
			return fmt.Sprintf("session already settled as ticket %d", existing.ID), nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
	}

	wasActive, err := s.reservations.CompleteAndRegister(ctx, md.ReservationID, md.TournamentID, ev.SessionRef)
	if err != nil {
		return "", fmt.Errorf("complete reservation: %w", err)
	}
	if !wasActive {
		// The hold expired or was never attached; the payment is real
		// regardless, so the registration still lands.
		s.log.Warn("settlement arrived without a live hold",
			"event_id", ev.ID, "reservation_id", md.ReservationID)
	}

	var tournamentName string
	if t, err := s.tournaments.GetByID(ctx, md.TournamentID); err == nil {
		tournamentName = t.Name
	}
	var sessionRef, paymentRef, discount *string
	if ev.SessionRef != "" {
		sessionRef = &ev.SessionRef
	}
	if ev.PaymentRef != "" {
		paymentRef = &ev.PaymentRef
	}
	if md.DiscountCode != "" {
		discount = &md.DiscountCode
	}
	ticket, err := s.tickets.Issue(ctx, IssueParams{
		TournamentID:    md.TournamentID,
		TournamentName:  tournamentName,
		HolderID:        md.HolderID,
		PlayerID:        md.PlayerID,
		TeamID:          md.TeamID,
		PaymentStatus:   model.PaymentPaid,
		AmountPaidCents: ev.AmountCents,
		SessionRef:      sessionRef,
		PaymentRef:      paymentRef,
		DiscountCode:    discount,
		Email:           md.Email,
	})
	if err != nil {
		return "", fmt.Errorf("issue ticket: %w", err)
	}

	outcome := fmt.Sprintf("issued ticket %d for tournament %d", ticket.ID, md.TournamentID)
	if discount != nil {
		if err := s.discounts.Redeem(ctx, *discount); err != nil {
			// Ticket issuance is durable; the missing redemption needs
			// operator attention, so it fails the event record.
			return outcome, fmt.Errorf("redeem discount %s: %w", *discount, err)
		}
	}
	return outcome, nil
}

func (s *SettlementService) handleExpired(ctx context.Context, ev *payment.Event) (string, error) {
	reservationID, err := requiredID(ev.Metadata, "reservation_id")
	if err != nil {
		return "", err
	}
	released, err := s.reservations.ExpireAndRelease(ctx, reservationID)
	if err != nil {
		return "", fmt.Errorf("expire reservation %d: %w", reservationID, err)
	}
	if !released {
		// A cancel, completion or sweep got there first; the session
		// expiring after that is expected, not an error.
		return fmt.Sprintf("reservation %d already terminal", reservationID), nil
	}
	return fmt.Sprintf("reservation %d expired, hold released", reservationID), nil
}

func (s *SettlementService) handleRefunded(ctx context.Context, ev *payment.Event) (string, error) {
	if ev.PaymentRef == "" {
		return "", fmt.Errorf("%w: refund event without payment reference", ErrValidationFailed)
	}
	if err := s.tickets.ApplyRefund(ctx, ev.PaymentRef); err != nil {
		return "", fmt.Errorf("apply refund for %s: %w", ev.PaymentRef, err)
	}
	return fmt.Sprintf("refund applied for payment %s", ev.PaymentRef), nil
}
