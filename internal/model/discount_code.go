package model

import "time"

// Discount code types.  Percent codes multiply the base price; amount
// codes subtract a fixed number of cents, floored at zero.
const (
	DiscountPercent = "percent"
	DiscountAmount  = "amount"
)

// Reasons returned by discount validation, checked in this order with
// the first failure winning.
const (
	DiscountReasonNotFound      = "not_found"
	DiscountReasonExpired       = "expired"
	DiscountReasonLimitReached  = "limit_reached"
	DiscountReasonNotApplicable = "not_applicable"
)

// DiscountCode is a redeemable promotion.  RedemptionCount increments
// exactly once per settled checkout that used the code, never at quote
// or session-creation time, since a session can be abandoned without
// consuming a redemption slot.
//
// Fields:
//  ID              – primary key identifier.
//  Code            – unique code string as entered by players.
//  Type            – percent or amount.
//  Value           – percent off (0–100) or cents off depending on Type.
//  MaxRedemptions  – optional cap on total redemptions.
//  RedemptionCount – redemptions consumed so far.
//  ExpiresAt       – optional expiry of the code itself.
//  TournamentScope – tournament IDs the code applies to; empty means all.
//  Active          – manual kill switch.
//  CreatedAt       – creation timestamp.
type DiscountCode struct {
	ID              uint64     // discount_codes.id
	Code            string     // discount_codes.code
	Type            string     // discount_codes.type
	Value           int64      // discount_codes.value
	MaxRedemptions  *int       // discount_codes.max_redemptions (nullable)
	RedemptionCount int        // discount_codes.redemption_count
	ExpiresAt       *time.Time // discount_codes.expires_at (nullable)
	TournamentScope []uint64   // discount_code_scopes rows
	Active          bool       // discount_codes.active
	CreatedAt       time.Time  // discount_codes.created_at
}

// Usable reports whether the code can still be redeemed at the given
// instant, ignoring tournament scope.  Scope is checked separately so
// validation can report not_applicable as its own reason.
func (d *DiscountCode) Usable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return false
	}
	if d.MaxRedemptions != nil && d.RedemptionCount >= *d.MaxRedemptions {
		return false
	}
	return true
}

// AppliesTo reports whether the code is valid for the given tournament.
// An empty scope means the code applies everywhere.
func (d *DiscountCode) AppliesTo(tournamentID uint64) bool {
	if len(d.TournamentScope) == 0 {
		return true
	}
	for _, id := range d.TournamentScope {
		if id == tournamentID {
			return true
		}
	}
	return false
}

// Apply returns the price after applying the discount to the given base
// price.  Percent codes round half up; amount codes floor at zero.
func (d *DiscountCode) Apply(priceCents int64) int64 {
	switch d.Type {
	case DiscountPercent:
		return (priceCents*(100-d.Value) + 50) / 100
	case DiscountAmount:
		if d.Value >= priceCents {
			return 0
		}
		return priceCents - d.Value
	}
	return priceCents
}
