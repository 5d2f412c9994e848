package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/payment"
	"github.com/courtside/tournament-registration/internal/queue"
	"github.com/courtside/tournament-registration/internal/repository"
)

// memStore is a mutex-guarded in-memory implementation of every store
// interface.  It mirrors the atomicity contract of the MySQL
// repositories: each method is one atomic unit, conditional transitions
// only touch rows in the expected source state, and counter mutations
// pair 1:1 with the transitions that justify them.
type memStore struct {
	mu sync.Mutex

	tournaments  map[uint64]*model.Tournament
	reservations map[uint64]*model.Reservation
	tickets      map[uint64]*model.Ticket
	discounts    map[string]*model.DiscountCode
	events       map[string]*eventRecord

	nextReservation uint64
	nextTicket      uint64
}

type eventRecord struct {
	kind    string
	context string
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  map[uint64]*model.Tournament{},
		reservations: map[uint64]*model.Reservation{},
		tickets:      map[uint64]*model.Ticket{},
		discounts:    map[string]*model.DiscountCode{},
		events:       map[string]*eventRecord{},
	}
}

func (m *memStore) addTournament(t *model.Tournament) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tournaments[t.ID] = &cp
}

func (m *memStore) addDiscount(d *model.DiscountCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.discounts[d.Code] = &cp
}

func (m *memStore) tournament(id uint64) model.Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tournaments[id]
}

func (m *memStore) reservation(id uint64) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.reservations[id]
}

func (m *memStore) ticketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// TournamentStore

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) Availability(_ context.Context, id uint64, now time.Time) (*repository.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	reserved := 0
	for _, r := range m.reservations {
		if r.TournamentID == id && r.IsActive(now) {
			reserved++
		}
	}
	remaining := t.MaxCapacity - t.RegisteredCount - reserved
	if remaining < 0 {
		remaining = 0
	}
	return &repository.Availability{
		TournamentID: id,
		MaxCapacity:  t.MaxCapacity,
		Registered:   t.RegisteredCount,
		Reserved:     reserved,
		Remaining:    remaining,
	}, nil
}

// ReservationStore

func (m *memStore) Hold(_ context.Context, tournamentID, holderID, playerID uint64, ttl time.Duration) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	now := time.Now().UTC()
	for _, r := range m.reservations {
		if r.TournamentID == tournamentID && r.HolderID == holderID && r.Status == model.ReservationActive {
			r.Status = model.ReservationCancelled
			t.SpotsReserved--
		}
	}
	active := 0
	for _, r := range m.reservations {
		if r.TournamentID == tournamentID && r.IsActive(now) {
			active++
		}
	}
	if t.RegisteredCount+active >= t.MaxCapacity {
		return nil, repository.ErrCapacityExceeded
	}
	m.nextReservation++
	res := &model.Reservation{
		ID:           m.nextReservation,
		TournamentID: tournamentID,
		HolderID:     holderID,
		PlayerID:     playerID,
		Status:       model.ReservationActive,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
	m.reservations[res.ID] = res
	t.SpotsReserved++
	cp := *res
	return &cp, nil
}

func (m *memStore) CancelActive(_ context.Context, tournamentID, holderID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelled := 0
	for _, r := range m.reservations {
		if r.TournamentID == tournamentID && r.HolderID == holderID && r.Status == model.ReservationActive {
			r.Status = model.ReservationCancelled
			cancelled++
		}
	}
	if cancelled == 0 {
		return repository.ErrNotFound
	}
	m.tournaments[tournamentID].SpotsReserved -= cancelled
	return nil
}

func (m *memStore) GetActive(_ context.Context, tournamentID, holderID uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var latest *model.Reservation
	for _, r := range m.reservations {
		if r.TournamentID == tournamentID && r.HolderID == holderID && r.IsActive(now) {
			if latest == nil || r.ID > latest.ID {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) GetReservationByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) AttachSession(_ context.Context, id uint64, sessionRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Status != model.ReservationActive {
		return repository.ErrInvalidState
	}
	ref := sessionRef
	r.SessionRef = &ref
	return nil
}

func (m *memStore) CompleteAndRegister(_ context.Context, reservationID, tournamentID uint64, sessionRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[tournamentID]
	if !ok {
		return false, repository.ErrNotFound
	}
	wasActive := false
	if r, ok := m.reservations[reservationID]; ok && r.Status == model.ReservationActive {
		r.Status = model.ReservationCompleted
		if sessionRef != "" {
			ref := sessionRef
			r.SessionRef = &ref
		}
		t.SpotsReserved--
		wasActive = true
	}
	t.RegisteredCount++
	return wasActive, nil
}

func (m *memStore) ExpireAndRelease(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != model.ReservationActive {
		return false, nil
	}
	r.Status = model.ReservationExpired
	m.tournaments[r.TournamentID].SpotsReserved--
	return true, nil
}

func (m *memStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	swept := 0
	for _, r := range m.reservations {
		if r.Status == model.ReservationActive && !r.ExpiresAt.After(now) {
			r.Status = model.ReservationExpired
			m.tournaments[r.TournamentID].SpotsReserved--
			swept++
		}
	}
	return swept, nil
}

// TicketStore

func (m *memStore) Insert(_ context.Context, t *model.Ticket, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tickets {
		if existing.Code == t.Code {
			return repository.ErrConflict
		}
	}
	m.nextTicket++
	t.ID = m.nextTicket
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *memStore) getTicket(id uint64) (*model.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetTicketByID(_ context.Context, id uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTicket(id)
}

func (m *memStore) GetByPaymentRef(_ context.Context, ref string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.PaymentRef != nil && *t.PaymentRef == ref {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetBySessionRef(_ context.Context, ref string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.SessionRef != nil && *t.SessionRef == ref {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CheckIn(_ context.Context, id, operatorID uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != model.TicketValid {
		return repository.ErrInvalidState
	}
	t.Status = model.TicketCheckedIn
	t.CheckedInAt = &at
	t.CheckedInBy = &operatorID
	return nil
}

func (m *memStore) VoidAndRelease(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status == model.TicketVoid || t.Status == model.TicketRefunded {
		return repository.ErrInvalidState
	}
	t.Status = model.TicketVoid
	m.tournaments[t.TournamentID].RegisteredCount--
	return nil
}

func (m *memStore) MarkRefunded(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if t.PaymentStatus != model.PaymentPaid || t.Status == model.TicketVoid {
		return repository.ErrInvalidState
	}
	t.Status = model.TicketRefunded
	t.PaymentStatus = model.PaymentRefunded
	return nil
}

func (m *memStore) IncrementEmailResend(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.EmailResendCount++
	return nil
}

func (m *memStore) ListByHolder(_ context.Context, holderID uint64) ([]repository.TicketDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	details := []repository.TicketDetail{}
	for _, t := range m.tickets {
		if t.HolderID != holderID {
			continue
		}
		name := ""
		if tr, ok := m.tournaments[t.TournamentID]; ok {
			name = tr.Name
		}
		details = append(details, repository.TicketDetail{
			ID:              t.ID,
			Code:            t.Code,
			TournamentID:    t.TournamentID,
			TournamentName:  name,
			PlayerID:        t.PlayerID,
			Status:          t.Status,
			PaymentStatus:   t.PaymentStatus,
			AmountPaidCents: t.AmountPaidCents,
		})
	}
	return details, nil
}

// DiscountStore

func (m *memStore) GetByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) Redeem(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[code]
	if !ok {
		return repository.ErrNotFound
	}
	d.RedemptionCount++
	return nil
}

// EventLog

func (m *memStore) Claim(_ context.Context, externalEventID, kind string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[externalEventID]; ok {
		return false, nil
	}
	m.events[externalEventID] = &eventRecord{kind: kind}
	return true, nil
}

func (m *memStore) RecordOutcome(_ context.Context, externalEventID, context string, procErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.events[externalEventID]
	if !ok {
		return repository.ErrNotFound
	}
	rec.context = context
	rec.err = procErr
	return nil
}

func (m *memStore) CountFailedSince(_ context.Context, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.events {
		if rec.err != nil {
			n++
		}
	}
	return n, nil
}

// reservationStoreAdapter fixes the method-name clashes between the
// combined memStore and the per-interface method sets.
type reservationStoreAdapter struct{ *memStore }

func (a reservationStoreAdapter) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return a.GetReservationByID(ctx, id)
}

type ticketStoreAdapter struct{ *memStore }

func (a ticketStoreAdapter) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	return a.GetTicketByID(ctx, id)
}

// fakeGateway records gateway calls and returns canned responses.
type fakeGateway struct {
	mu          sync.Mutex
	sessions    []payment.SessionParams
	refunds     []fakeRefund
	refundErr   error
	verifyEvent *payment.Event
	verifyErr   error
	nextSession int
}

type fakeRefund struct {
	paymentRef  string
	amountCents int64
	reason      string
}

func (g *fakeGateway) CreateSession(p payment.SessionParams) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = append(g.sessions, p)
	g.nextSession++
	id := fmt.Sprintf("cs_test_%d", g.nextSession)
	return &payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) CreateRefund(paymentRef string, amountCents int64, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, fakeRefund{paymentRef: paymentRef, amountCents: amountCents, reason: reason})
	return nil
}

func (g *fakeGateway) VerifyWebhook(_ []byte, _ string) (*payment.Event, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyEvent, nil
}

func (g *fakeGateway) refundCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

func gatewayProvider(g payment.Gateway) GatewayProvider {
	return func() (payment.Gateway, error) { return g, nil }
}

func noGateway() (payment.Gateway, error) { return nil, payment.ErrNotConfigured }

// fakeArtifacts returns a fixed byte blob for any code.
type fakeArtifacts struct{}

func (fakeArtifacts) Generate(code string) ([]byte, error) { return []byte("qr:" + code), nil }

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.TicketIssuedEvent
}

func (p *fakePublisher) PublishTicketIssued(_ context.Context, ev queue.TicketIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
