package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtside/tournament-registration/internal/model"
)

// DiscountRepo provides data access to discount codes and their
// tournament scopes.  Redemption is a plain atomic increment; the
// decision to redeem belongs to the settlement pipeline, which only
// calls Redeem after payment is confirmed and behind the event-log
// idempotency guard.
type DiscountRepo struct {
	db *sql.DB
}

// NewDiscountRepo returns a new DiscountRepo bound to the given database.
func NewDiscountRepo(db *sql.DB) *DiscountRepo { return &DiscountRepo{db: db} }

// GetByCode loads a discount code and its tournament scope rows.
// ErrNotFound is returned when the code does not exist.
func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	const q = `SELECT id, code, type, value, max_redemptions, redemption_count, expires_at,
	                  active, created_at
	           FROM discount_codes WHERE code = ?`
	var d model.DiscountCode
	var maxRedemptions sql.NullInt64
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&d.ID, &d.Code, &d.Type, &d.Value, &maxRedemptions, &d.RedemptionCount,
		&expiresAt, &d.Active, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if maxRedemptions.Valid {
		v := int(maxRedemptions.Int64)
		d.MaxRedemptions = &v
	}
	if expiresAt.Valid {
		v := expiresAt.Time
		d.ExpiresAt = &v
	}

	const scopeQ = `SELECT tournament_id FROM discount_code_scopes WHERE discount_code_id = ?`
	rows, err := r.db.QueryContext(ctx, scopeQ, d.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tid uint64
		if err := rows.Scan(&tid); err != nil {
			return nil, err
		}
		d.TournamentScope = append(d.TournamentScope, tid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Redeem increments the redemption counter for a code by exactly one.
// ErrNotFound is returned when the code does not exist.
func (r *DiscountRepo) Redeem(ctx context.Context, code string) error {
	const q = `UPDATE discount_codes SET redemption_count = redemption_count + 1 WHERE code = ?`
	res, err := r.db.ExecContext(ctx, q, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
