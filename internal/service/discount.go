package service

import (
	"context"
	"errors"
	"time"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/repository"
)

// Validation is the outcome of checking a discount code.  When Usable
// is false, Reason holds the first failed check; Code is only set on a
// usable result.
type Validation struct {
	Usable bool
	Reason string
	Code   *model.DiscountCode
}

// DiscountService validates and redeems discount codes.
type DiscountService struct {
	discounts DiscountStore
	log       *logger.Logger
}

func NewDiscountService(discounts DiscountStore, log *logger.Logger) *DiscountService {
	return &DiscountService{discounts: discounts, log: log}
}

// Validate checks a code against the tournament.  Failure reasons are
// evaluated in a fixed order and the first one wins: not_found,
// expired, limit_reached, not_applicable.  Deactivated codes report
// not_found so a killed code is indistinguishable from one that never
// existed.  A tournamentID of zero skips the scope check.
func (s *DiscountService) Validate(ctx context.Context, code string, tournamentID uint64) (*Validation, error) {
	d, err := s.discounts.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return &Validation{Reason: model.DiscountReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return &Validation{Reason: model.DiscountReasonNotFound}, nil
	}
	now := time.Now().UTC()
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return &Validation{Reason: model.DiscountReasonExpired}, nil
	}
	if d.MaxRedemptions != nil && d.RedemptionCount >= *d.MaxRedemptions {
		return &Validation{Reason: model.DiscountReasonLimitReached}, nil
	}
	if tournamentID != 0 && !d.AppliesTo(tournamentID) {
		return &Validation{Reason: model.DiscountReasonNotApplicable}, nil
	}
	return &Validation{Usable: true, Code: d}, nil
}

// Redeem consumes one redemption slot.  Only the settlement pipeline
// calls this, after payment is confirmed and behind the event-log
// idempotency guard.
func (s *DiscountService) Redeem(ctx context.Context, code string) error {
	if err := s.discounts.Redeem(ctx, code); err != nil {
		return err
	}
	s.log.Info("discount redeemed", "code", code)
	return nil
}
