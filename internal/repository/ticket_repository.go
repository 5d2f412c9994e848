package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/courtside/tournament-registration/internal/model"
)

// TicketRepo provides data access to issued tickets.  Lifecycle
// transitions (check-in, void, refund) are conditional UPDATEs on the
// current status so concurrent attempts cannot both succeed; the loser
// observes ErrInvalidState.  Tickets are never deleted.
type TicketRepo struct {
	db          *sql.DB
	tournaments *TournamentRepo
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB, tournaments *TournamentRepo) *TicketRepo {
	return &TicketRepo{db: db, tournaments: tournaments}
}

const ticketColumns = `id, code, tournament_id, holder_id, player_id, team_id, status,
	payment_status, session_ref, payment_ref, amount_paid_cents, discount_code, email,
	checked_in_at, checked_in_by, email_resend_count, created_at, updated_at`

func scanTicket(row *sql.Row) (*model.Ticket, error) {
	var t model.Ticket
	var teamID, checkedInBy sql.NullInt64
	var sessionRef, paymentRef, discountCode sql.NullString
	var checkedInAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.Code, &t.TournamentID, &t.HolderID, &t.PlayerID, &teamID, &t.Status,
		&t.PaymentStatus, &sessionRef, &paymentRef, &t.AmountPaidCents, &discountCode, &t.Email,
		&checkedInAt, &checkedInBy, &t.EmailResendCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if teamID.Valid {
		v := uint64(teamID.Int64)
		t.TeamID = &v
	}
	if sessionRef.Valid {
		v := sessionRef.String
		t.SessionRef = &v
	}
	if paymentRef.Valid {
		v := paymentRef.String
		t.PaymentRef = &v
	}
	if discountCode.Valid {
		v := discountCode.String
		t.DiscountCode = &v
	}
	if checkedInAt.Valid {
		v := checkedInAt.Time
		t.CheckedInAt = &v
	}
	if checkedInBy.Valid {
		v := uint64(checkedInBy.Int64)
		t.CheckedInBy = &v
	}
	return &t, nil
}

// Insert persists a freshly issued ticket together with its scannable
// artifact and populates the generated ID.  A duplicate code collides
// with the unique key and surfaces as ErrConflict so the caller can
// retry with a fresh code.
func (r *TicketRepo) Insert(ctx context.Context, t *model.Ticket, artifact []byte) error {
	const q = `INSERT INTO tickets (code, tournament_id, holder_id, player_id, team_id, status,
	               payment_status, session_ref, payment_ref, amount_paid_cents, discount_code,
	               email, artifact)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.Code, t.TournamentID, t.HolderID, t.PlayerID, nullableUint(t.TeamID), t.Status,
		t.PaymentStatus, nullableString(t.SessionRef), nullableString(t.PaymentRef),
		t.AmountPaidCents, nullableString(t.DiscountCode), t.Email, artifact,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns a ticket by primary key.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	return scanTicket(r.db.QueryRowContext(ctx, q, id))
}

// GetByPaymentRef resolves a ticket from the external payment reference
// echoed back by refund notifications.
func (r *TicketRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE payment_ref = ?`
	return scanTicket(r.db.QueryRowContext(ctx, q, ref))
}

// GetBySessionRef resolves a ticket from the checkout session that
// produced it.  Used to detect replayed settlements that slipped past
// the event log (e.g. the same session under two event ids).
func (r *TicketRepo) GetBySessionRef(ctx context.Context, ref string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE session_ref = ?`
	return scanTicket(r.db.QueryRowContext(ctx, q, ref))
}

// CheckIn transitions a ticket from valid to checked_in, recording who
// performed the scan and when.  ErrInvalidState is returned when the
// ticket exists but is not in the valid state (double check-in, voided
// or refunded ticket); ErrNotFound when it does not exist at all.
func (r *TicketRepo) CheckIn(ctx context.Context, id, operatorID uint64, at time.Time) error {
	const q = `UPDATE tickets SET status = ?, checked_in_at = ?, checked_in_by = ?
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.TicketCheckedIn, at.UTC(), operatorID, id, model.TicketValid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// VoidAndRelease voids a ticket and releases the holder's registration
// slot in the same transaction.  Tickets that are already void or
// refunded cannot be voided again.
func (r *TicketRepo) VoidAndRelease(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var tournamentID uint64
	var status string
	const selQ = `SELECT tournament_id, status FROM tickets WHERE id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, selQ, id).Scan(&tournamentID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == model.TicketVoid || status == model.TicketRefunded {
		return ErrInvalidState
	}
	const updQ = `UPDATE tickets SET status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updQ, model.TicketVoid, id); err != nil {
		return err
	}
	if err := r.tournaments.AdjustCountersTx(ctx, tx, tournamentID, -1, 0); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MarkRefunded flips a paid ticket to refunded.  The transition is
// conditional on payment_status still being paid and the ticket not
// being void, so a second refund attempt fails with ErrInvalidState:
// refund is terminal and applied at most once.
func (r *TicketRepo) MarkRefunded(ctx context.Context, id uint64) error {
	const q = `UPDATE tickets SET status = ?, payment_status = ?
	           WHERE id = ? AND payment_status = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, q, model.TicketRefunded, model.PaymentRefunded, id, model.PaymentPaid, model.TicketVoid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.transitionFailure(ctx, id)
	}
	return nil
}

// IncrementEmailResend bumps the resend counter for a ticket.
func (r *TicketRepo) IncrementEmailResend(ctx context.Context, id uint64) error {
	const q = `UPDATE tickets SET email_resend_count = email_resend_count + 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TicketDetail is the listing projection for a holder's tickets.  The
// tournament name is resolved with an explicit join at query time.
type TicketDetail struct {
	ID              uint64  `json:"id"`
	Code            string  `json:"code"`
	TournamentID    uint64  `json:"tournament_id"`
	TournamentName  string  `json:"tournament_name"`
	PlayerID        uint64  `json:"player_id"`
	Status          string  `json:"status"`
	PaymentStatus   string  `json:"payment_status"`
	AmountPaidCents int64   `json:"amount_paid_cents"`
	CheckedInAt     *string `json:"checked_in_at,omitempty"`
}

// ListByHolder returns all tickets for the given holder, most recent
// first, with tournament names joined in.
func (r *TicketRepo) ListByHolder(ctx context.Context, holderID uint64) ([]TicketDetail, error) {
	const q = `SELECT t.id, t.code, t.tournament_id, tr.name, t.player_id, t.status,
	                  t.payment_status, t.amount_paid_cents, t.checked_in_at
	           FROM tickets t
	           JOIN tournaments tr ON tr.id = t.tournament_id
	           WHERE t.holder_id = ?
	           ORDER BY t.id DESC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := []TicketDetail{}
	for rows.Next() {
		var d TicketDetail
		var checkedInAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.Code, &d.TournamentID, &d.TournamentName, &d.PlayerID,
			&d.Status, &d.PaymentStatus, &d.AmountPaidCents, &checkedInAt); err != nil {
			return nil, err
		}
		if checkedInAt.Valid {
			iso := checkedInAt.Time.UTC().Format(time.RFC3339)
			d.CheckedInAt = &iso
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// transitionFailure distinguishes a missing row from a failed status
// precondition after a conditional UPDATE touched zero rows.
func (r *TicketRepo) transitionFailure(ctx context.Context, id uint64) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tickets WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidState
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableUint(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
