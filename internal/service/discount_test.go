package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
)

func intPtr(v int) *int             { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestValidateReasonOrder(t *testing.T) {
	past := timePtr(time.Now().UTC().Add(-time.Hour))
	future := timePtr(time.Now().UTC().Add(time.Hour))

	cases := []struct {
		name         string
		code         *model.DiscountCode
		lookup       string
		tournamentID uint64
		usable       bool
		reason       string
	}{
		{
			name:   "unknown code",
			lookup: "NOPE",
			reason: model.DiscountReasonNotFound,
		},
		{
			name: "deactivated code behaves as missing",
			code: &model.DiscountCode{
				Code: "DEAD", Type: model.DiscountPercent, Value: 10,
			},
			lookup: "DEAD",
			reason: model.DiscountReasonNotFound,
		},
		{
			name: "expired wins over limit",
			code: &model.DiscountCode{
				Code: "OLD", Type: model.DiscountPercent, Value: 10, Active: true,
				ExpiresAt: past, MaxRedemptions: intPtr(5), RedemptionCount: 5,
			},
			lookup: "OLD",
			reason: model.DiscountReasonExpired,
		},
		{
			name: "limit reached",
			code: &model.DiscountCode{
				Code: "FULL", Type: model.DiscountPercent, Value: 10, Active: true,
				ExpiresAt: future, MaxRedemptions: intPtr(5), RedemptionCount: 5,
			},
			lookup: "FULL",
			reason: model.DiscountReasonLimitReached,
		},
		{
			name: "scope mismatch",
			code: &model.DiscountCode{
				Code: "SCOPED", Type: model.DiscountPercent, Value: 10, Active: true,
				TournamentScope: []uint64{7},
			},
			lookup:       "SCOPED",
			tournamentID: 8,
			reason:       model.DiscountReasonNotApplicable,
		},
		{
			name: "scoped code valid for its tournament",
			code: &model.DiscountCode{
				Code: "SCOPED2", Type: model.DiscountPercent, Value: 10, Active: true,
				TournamentScope: []uint64{7},
			},
			lookup:       "SCOPED2",
			tournamentID: 7,
			usable:       true,
		},
		{
			name: "unscoped code valid everywhere",
			code: &model.DiscountCode{
				Code: "SAVE50", Type: model.DiscountPercent, Value: 50, Active: true,
			},
			lookup:       "SAVE50",
			tournamentID: 99,
			usable:       true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			if tc.code != nil {
				store.addDiscount(tc.code)
			}
			svc := NewDiscountService(store, logger.Nop())
			v, err := svc.Validate(context.Background(), tc.lookup, tc.tournamentID)
			require.NoError(t, err)
			assert.Equal(t, tc.usable, v.Usable)
			assert.Equal(t, tc.reason, v.Reason)
			if tc.usable {
				require.NotNil(t, v.Code)
			}
		})
	}
}

func TestRedeemIncrementsExactlyOnce(t *testing.T) {
	store := newMemStore()
	store.addDiscount(&model.DiscountCode{
		Code: "SAVE50", Type: model.DiscountPercent, Value: 50, Active: true,
	})
	svc := NewDiscountService(store, logger.Nop())

	require.NoError(t, svc.Redeem(context.Background(), "SAVE50"))
	d, err := store.GetByCode(context.Background(), "SAVE50")
	require.NoError(t, err)
	assert.Equal(t, 1, d.RedemptionCount)
}

func TestDiscountApply(t *testing.T) {
	cases := []struct {
		name  string
		code  model.DiscountCode
		base  int64
		total int64
	}{
		{"fifty percent", model.DiscountCode{Type: model.DiscountPercent, Value: 50}, 2000, 1000},
		{"percent rounds half up", model.DiscountCode{Type: model.DiscountPercent, Value: 33}, 999, 669},
		{"amount off", model.DiscountCode{Type: model.DiscountAmount, Value: 500}, 2000, 1500},
		{"amount floors at zero", model.DiscountCode{Type: model.DiscountAmount, Value: 5000}, 2000, 0},
		{"hundred percent", model.DiscountCode{Type: model.DiscountPercent, Value: 100}, 2000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.total, tc.code.Apply(tc.base))
		})
	}
}
