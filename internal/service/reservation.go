package service

import (
	"context"
	"time"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/repository"
)

// ReservationService manages capacity holds.  All concurrency control
// lives in the store: each call is one atomic unit, so two racing holds
// for the last slot cannot both succeed and a cancel racing a sweep is
// decided by whichever conditional transition lands first.
type ReservationService struct {
	reservations ReservationStore
	tournaments  TournamentStore
	ttl          time.Duration
	log          *logger.Logger
}

func NewReservationService(reservations ReservationStore, tournaments TournamentStore, ttl time.Duration, log *logger.Logger) *ReservationService {
	return &ReservationService{reservations: reservations, tournaments: tournaments, ttl: ttl, log: log}
}

// TTL returns the configured hold lifetime.
func (s *ReservationService) TTL() time.Duration { return s.ttl }

// Hold places a capacity hold for the holder on the tournament,
// replacing any prior active hold by the same holder.  Returns
// repository.ErrCapacityExceeded when the tournament is full.
func (s *ReservationService) Hold(ctx context.Context, tournamentID, holderID, playerID uint64) (*model.Reservation, error) {
	res, err := s.reservations.Hold(ctx, tournamentID, holderID, playerID, s.ttl)
	if err != nil {
		return nil, err
	}
	s.log.Info("reservation held",
		"reservation_id", res.ID, "tournament_id", tournamentID,
		"holder_id", holderID, "expires_at", res.ExpiresAt.UTC().Format(time.RFC3339))
	return res, nil
}

// Cancel releases the holder's active hold on the tournament.  Returns
// repository.ErrNotFound when no active hold exists.
func (s *ReservationService) Cancel(ctx context.Context, tournamentID, holderID uint64) error {
	if err := s.reservations.CancelActive(ctx, tournamentID, holderID); err != nil {
		return err
	}
	s.log.Info("reservation cancelled", "tournament_id", tournamentID, "holder_id", holderID)
	return nil
}

// GetActive returns the holder's active, non-expired hold.
func (s *ReservationService) GetActive(ctx context.Context, tournamentID, holderID uint64) (*model.Reservation, error) {
	return s.reservations.GetActive(ctx, tournamentID, holderID)
}

// Availability returns the capacity projection for a tournament.  The
// reserved figure counts active non-expired rows at read time, so a
// stale hold stops counting the moment it lapses even before the
// sweeper reclaims it.
func (s *ReservationService) Availability(ctx context.Context, tournamentID uint64) (*repository.Availability, error) {
	return s.tournaments.Availability(ctx, tournamentID, time.Now().UTC())
}

// SweepExpired reclaims capacity held by reservations past their TTL.
// Called by the scheduler; exposed here so the scheduler stays a plain
// timer with no knowledge of reservations.
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	return s.reservations.SweepExpired(ctx, time.Now().UTC())
}
