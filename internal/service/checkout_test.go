package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/repository"
)

type checkoutRig struct {
	store     *memStore
	gateway   *fakeGateway
	publisher *fakePublisher
	checkout  *CheckoutService
	resSvc    *ReservationService
}

func newCheckoutRig(t *testing.T, cfg CheckoutConfig) *checkoutRig {
	t.Helper()
	store := newMemStore()
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	discounts := NewDiscountService(store, logger.Nop())
	tickets := NewTicketService(ticketStoreAdapter{store}, fakeArtifacts{}, gatewayProvider(gw), pub, logger.Nop())
	checkout := NewCheckoutService(reservationStoreAdapter{store}, store, discounts, tickets, gatewayProvider(gw), cfg, logger.Nop())
	return &checkoutRig{
		store:     store,
		gateway:   gw,
		publisher: pub,
		checkout:  checkout,
		resSvc:    newReservationService(store, 15*time.Minute),
	}
}

func defaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		SuccessURL:      "https://app.example/success",
		CancelURL:       "https://app.example/cancel",
		DefaultCurrency: "usd",
	}
}

func TestQuoteAppliesPercentDiscount(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	rig.store.addDiscount(&model.DiscountCode{
		Code: "SAVE50", Type: model.DiscountPercent, Value: 50, Active: true,
	})
	tourney := openTournament(1, 8)

	q, err := rig.checkout.Quote(context.Background(), tourney, "SAVE50")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), q.BaseCents)
	assert.Equal(t, int64(1000), q.TotalCents)
	assert.Equal(t, "SAVE50", q.DiscountCode)
}

func TestQuoteUsesEarlyBirdFee(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	tourney := openTournament(1, 8)
	tourney.EarlyBirdFeeCents = 1500
	tourney.EarlyBirdUntil = timePtr(time.Now().UTC().Add(24 * time.Hour))

	q, err := rig.checkout.Quote(context.Background(), tourney, "")
	require.NoError(t, err)
	assert.True(t, q.EarlyBird)
	assert.Equal(t, int64(1500), q.TotalCents)
}

func TestQuoteIgnoresExhaustedCode(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	rig.store.addDiscount(&model.DiscountCode{
		Code: "FULL", Type: model.DiscountPercent, Value: 50, Active: true,
		MaxRedemptions: intPtr(5), RedemptionCount: 5,
	})
	tourney := openTournament(1, 8)

	q, err := rig.checkout.Quote(context.Background(), tourney, "FULL")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), q.TotalCents, "checkout proceeds at full price")
	assert.Empty(t, q.DiscountCode)
	assert.Equal(t, model.DiscountReasonLimitReached, q.DiscountReason)
}

func TestCheckoutCreatesSessionWithMetadata(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	rig.store.addTournament(openTournament(1, 8))
	res, err := rig.resSvc.Hold(context.Background(), 1, 10, 42)
	require.NoError(t, err)

	result, err := rig.checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "player@example.com",
	})
	require.NoError(t, err)
	assert.False(t, result.Free)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.SessionURL)

	require.Len(t, rig.gateway.sessions, 1)
	sp := rig.gateway.sessions[0]
	assert.Equal(t, int64(2000), sp.AmountCents)
	assert.Equal(t, "1", sp.Metadata["tournament_id"])
	assert.Equal(t, "10", sp.Metadata["holder_id"])
	assert.Equal(t, "42", sp.Metadata["player_id"])
	assert.Equal(t, "player@example.com", sp.Metadata["email"])
	assert.Nil(t, sp.FeeSplit, "no platform account means no fee parameters at all")

	stored := rig.store.reservation(res.ID)
	require.NotNil(t, stored.SessionRef)
	assert.Equal(t, result.SessionID, *stored.SessionRef)
}

func TestCheckoutAttachesFeeSplitWhenConfigured(t *testing.T) {
	cfg := defaultCheckoutConfig()
	cfg.PlatformAccountID = "acct_123"
	cfg.FeePercent = 10
	rig := newCheckoutRig(t, cfg)
	rig.store.addTournament(openTournament(1, 8))
	_, err := rig.resSvc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	_, err = rig.checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com",
	})
	require.NoError(t, err)

	require.Len(t, rig.gateway.sessions, 1)
	split := rig.gateway.sessions[0].FeeSplit
	require.NotNil(t, split)
	assert.Equal(t, "acct_123", split.AccountID)
	assert.Equal(t, int64(200), split.FeeCents)
}

func TestCheckoutFreeTournamentIssuesTicketDirectly(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	tourney := openTournament(1, 8)
	tourney.EntryFeeCents = 0
	rig.store.addTournament(tourney)
	res, err := rig.resSvc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	result, err := rig.checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com",
	})
	require.NoError(t, err)
	assert.True(t, result.Free)
	require.NotNil(t, result.Ticket)
	assert.Equal(t, model.PaymentFree, result.Ticket.PaymentStatus)
	assert.Equal(t, int64(0), result.Ticket.AmountPaidCents)

	assert.Equal(t, model.ReservationCompleted, rig.store.reservation(res.ID).Status)
	after := rig.store.tournament(1)
	assert.Equal(t, 1, after.RegisteredCount)
	assert.Equal(t, 0, after.SpotsReserved)
	assert.Empty(t, rig.gateway.sessions, "free registrations never touch the gateway")
	assert.Equal(t, 1, rig.publisher.count())
}

func TestCheckoutDiscountToZeroSettlesImmediately(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	rig.store.addTournament(openTournament(1, 8))
	rig.store.addDiscount(&model.DiscountCode{
		Code: "COMP", Type: model.DiscountAmount, Value: 5000, Active: true,
	})
	_, err := rig.resSvc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	result, err := rig.checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com", DiscountCode: "COMP",
	})
	require.NoError(t, err)
	assert.True(t, result.Free)

	// The free settlement is the code's settlement; its redemption is
	// consumed right away.
	d, err := rig.store.GetByCode(context.Background(), "COMP")
	require.NoError(t, err)
	assert.Equal(t, 1, d.RedemptionCount)
}

func TestCheckoutWithoutHold(t *testing.T) {
	rig := newCheckoutRig(t, defaultCheckoutConfig())
	rig.store.addTournament(openTournament(1, 8))

	_, err := rig.checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckoutPaidRequiresGateway(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	discounts := NewDiscountService(store, logger.Nop())
	tickets := NewTicketService(ticketStoreAdapter{store}, fakeArtifacts{}, noGateway, nil, logger.Nop())
	checkout := NewCheckoutService(reservationStoreAdapter{store}, store, discounts, tickets, noGateway, defaultCheckoutConfig(), logger.Nop())
	resSvc := newReservationService(store, 15*time.Minute)

	_, err := resSvc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	_, err = checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com",
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestFreeCheckoutWorksWithoutGateway(t *testing.T) {
	store := newMemStore()
	tourney := openTournament(1, 8)
	tourney.EntryFeeCents = 0
	store.addTournament(tourney)
	discounts := NewDiscountService(store, logger.Nop())
	tickets := NewTicketService(ticketStoreAdapter{store}, fakeArtifacts{}, noGateway, nil, logger.Nop())
	checkout := NewCheckoutService(reservationStoreAdapter{store}, store, discounts, tickets, noGateway, defaultCheckoutConfig(), logger.Nop())
	resSvc := newReservationService(store, 15*time.Minute)

	_, err := resSvc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	result, err := checkout.Checkout(context.Background(), CheckoutParams{
		TournamentID: 1, HolderID: 10, Email: "p@example.com",
	})
	require.NoError(t, err)
	assert.True(t, result.Free)
}
