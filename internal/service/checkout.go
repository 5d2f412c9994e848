package service

import (
	"context"
	"strconv"
	"time"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/payment"
)

// CheckoutConfig carries the gateway-facing settings for session
// creation.  An empty PlatformAccountID means no fee split parameters
// are sent at all, not a zero fee.
type CheckoutConfig struct {
	SuccessURL        string
	CancelURL         string
	FeePercent        int64
	PlatformAccountID string
	DefaultCurrency   string
}

// Quote is the price computed for a registration at a point in time.
type Quote struct {
	BaseCents  int64  `json:"base_cents"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
	EarlyBird  bool   `json:"early_bird"`
	// DiscountCode is set when a usable code was applied.
	DiscountCode string `json:"discount_code,omitempty"`
	// DiscountReason explains why a submitted code was ignored;
	// checkout still proceeds at full price.
	DiscountReason string `json:"discount_reason,omitempty"`
}

// CheckoutParams describes a checkout request against an active hold.
type CheckoutParams struct {
	TournamentID uint64
	HolderID     uint64
	TeamID       *uint64
	Email        string
	DiscountCode string
}

// CheckoutResult is either an immediately issued free ticket or a
// hosted payment session the client must complete.
type CheckoutResult struct {
	Free       bool          `json:"free"`
	Ticket     *model.Ticket `json:"-"`
	SessionID  string        `json:"session_id,omitempty"`
	SessionURL string        `json:"session_url,omitempty"`
	Quote      *Quote        `json:"quote"`
}

// CheckoutService computes the final price for a hold and opens the
// payment session, or issues the ticket directly when the quoted price
// is zero.
type CheckoutService struct {
	reservations ReservationStore
	tournaments  TournamentStore
	discounts    *DiscountService
	tickets      *TicketService
	gateway      GatewayProvider
	cfg          CheckoutConfig
	log          *logger.Logger
}

func NewCheckoutService(
	reservations ReservationStore,
	tournaments TournamentStore,
	discounts *DiscountService,
	tickets *TicketService,
	gateway GatewayProvider,
	cfg CheckoutConfig,
	log *logger.Logger,
) *CheckoutService {
	return &CheckoutService{
		reservations: reservations,
		tournaments:  tournaments,
		discounts:    discounts,
		tickets:      tickets,
		gateway:      gateway,
		cfg:          cfg,
		log:          log,
	}
}

// Quote prices a registration for the tournament right now.  An
// unusable discount code never fails the quote; it is ignored and the
// reason reported so the client can surface it.
func (s *CheckoutService) Quote(ctx context.Context, t *model.Tournament, discountCode string) (*Quote, error) {
	now := time.Now().UTC()
	base := t.BasePriceCents(now)
	q := &Quote{
		BaseCents:  base,
		TotalCents: base,
		Currency:   s.currency(t),
		EarlyBird:  t.EarlyBird(now),
	}
	if discountCode == "" {
		return q, nil
	}
	v, err := s.discounts.Validate(ctx, discountCode, t.ID)
	if err != nil {
		return nil, err
	}
	if !v.Usable {
		q.DiscountReason = v.Reason
		return q, nil
	}
	q.TotalCents = v.Code.Apply(base)
	q.DiscountCode = discountCode
	return q, nil
}

// Checkout turns the holder's active hold into either a free ticket or
// a payment session.  The session metadata carries every id the
// settlement pipeline needs to recover context when the gateway echoes
// it back; that round-trip is the only channel back from the gateway.
func (s *CheckoutService) Checkout(ctx context.Context, p CheckoutParams) (*CheckoutResult, error) {
	res, err := s.reservations.GetActive(ctx, p.TournamentID, p.HolderID)
	if err != nil {
		return nil, err
	}
	t, err := s.tournaments.GetByID(ctx, p.TournamentID)
	if err != nil {
		return nil, err
	}
	q, err := s.Quote(ctx, t, p.DiscountCode)
	if err != nil {
		return nil, err
	}

	if q.TotalCents == 0 {
		return s.checkoutFree(ctx, res, t, p, q)
	}

	gw, err := s.gateway()
	if err != nil {
		return nil, ErrGatewayUnavailable
	}
	metadata := map[string]string{
		"reservation_id": strconv.FormatUint(res.ID, 10),
		"tournament_id":  strconv.FormatUint(t.ID, 10),
		"holder_id":      strconv.FormatUint(p.HolderID, 10),
		"player_id":      strconv.FormatUint(res.PlayerID, 10),
		"email":          p.Email,
	}
	if q.DiscountCode != "" {
		metadata["discount_code"] = q.DiscountCode
	}
	if p.TeamID != nil {
		metadata["team_id"] = strconv.FormatUint(*p.TeamID, 10)
	}
	var split *payment.FeeSplit
	if s.cfg.PlatformAccountID != "" {
		split = &payment.FeeSplit{
			AccountID: s.cfg.PlatformAccountID,
			FeeCents:  (q.TotalCents*s.cfg.FeePercent + 50) / 100,
		}
	}
	sess, err := gw.CreateSession(payment.SessionParams{
		AmountCents: q.TotalCents,
		Currency:    q.Currency,
		ProductName: t.Name,
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		ExpiresAt:   res.ExpiresAt,
		Metadata:    metadata,
		FeeSplit:    split,
	})
	if err != nil {
		s.log.Error("session creation failed", "reservation_id", res.ID, "error", err)
		return nil, ErrGatewayUnavailable
	}
	if err := s.reservations.AttachSession(ctx, res.ID, sess.ID); err != nil {
		// The hold lapsed between quote and session creation.  The
		// orphaned session resolves through the expiry webhook.
		s.log.Warn("hold lost before session could attach", "reservation_id", res.ID, "session_ref", sess.ID)
		return nil, err
	}
	s.log.Info("checkout session created",
		"reservation_id", res.ID, "session_ref", sess.ID, "amount_cents", q.TotalCents)
	return &CheckoutResult{SessionID: sess.ID, SessionURL: sess.URL, Quote: q}, nil
}

// checkoutFree settles a zero-price registration on the spot: the hold
// completes, the slot moves from reserved to registered, the ticket is
// issued free and any applied discount is redeemed immediately since
// this is its settlement.
func (s *CheckoutService) checkoutFree(ctx context.Context, res *model.Reservation, t *model.Tournament, p CheckoutParams, q *Quote) (*CheckoutResult, error) {
	if _, err := s.reservations.CompleteAndRegister(ctx, res.ID, t.ID, ""); err != nil {
		return nil, err
	}
	var discount *string
	if q.DiscountCode != "" {
		discount = &q.DiscountCode
	}
	ticket, err := s.tickets.Issue(ctx, IssueParams{
		TournamentID:    t.ID,
		TournamentName:  t.Name,
		HolderID:        p.HolderID,
		PlayerID:        res.PlayerID,
		TeamID:          p.TeamID,
		PaymentStatus:   model.PaymentFree,
		AmountPaidCents: 0,
		DiscountCode:    discount,
		Email:           p.Email,
	})
	if err != nil {
		return nil, err
	}
	if discount != nil {
		if err := s.discounts.Redeem(ctx, *discount); err != nil {
			s.log.Error("discount redemption failed on free registration", "code", *discount, "error", err)
		}
	}
	return &CheckoutResult{Free: true, Ticket: ticket, Quote: q}, nil
}

func (s *CheckoutService) currency(t *model.Tournament) string {
	if t.Currency != "" {
		return t.Currency
	}
	return s.cfg.DefaultCurrency
}
