package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/model"
	"github.com/courtside/tournament-registration/internal/repository"
)

func newReservationService(store *memStore, ttl time.Duration) *ReservationService {
	return NewReservationService(reservationStoreAdapter{store}, store, ttl, logger.Nop())
}

func openTournament(id uint64, capacity int) *model.Tournament {
	return &model.Tournament{
		ID:            id,
		Name:          "Spring Open",
		MaxCapacity:   capacity,
		EntryFeeCents: 2000,
		Currency:      "usd",
		Status:        "OPEN",
	}
}

func TestHoldCreatesActiveReservation(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	svc := newReservationService(store, 15*time.Minute)

	res, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, res.Status)
	assert.True(t, res.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, store.tournament(1).SpotsReserved)
}

func TestHoldReplacesPriorActiveHold(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	svc := newReservationService(store, 15*time.Minute)

	first, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	second, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	assert.Equal(t, model.ReservationCancelled, store.reservation(first.ID).Status)
	assert.Equal(t, model.ReservationActive, store.reservation(second.ID).Status)
	// Replacing a hold must not leak reserved capacity.
	assert.Equal(t, 1, store.tournament(1).SpotsReserved)
}

func TestHoldRejectsWhenFull(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 1))
	svc := newReservationService(store, 15*time.Minute)

	_, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	_, err = svc.Hold(context.Background(), 1, 11, 11)
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
}

func TestConcurrentHoldsForLastSlot(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 1))
	svc := newReservationService(store, 15*time.Minute)

	const holders = 10
	var wg sync.WaitGroup
	errs := make([]error, holders)
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Hold(context.Background(), 1, uint64(100+i), uint64(100+i))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, won, "exactly one concurrent hold may win the last slot")
	assert.Equal(t, 1, store.tournament(1).SpotsReserved)
}

func TestExpiredHoldDoesNotBlockAdmission(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 1))
	svc := newReservationService(store, 15*time.Minute)

	res, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)

	// Force the hold past its TTL without sweeping.
	store.mu.Lock()
	store.reservations[res.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	store.mu.Unlock()

	// The lapsed hold is invisible to getActive, to availability and to
	// the capacity check, even though the sweeper has not run.
	_, err = svc.GetActive(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	av, err := svc.Availability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, av.Reserved)
	assert.Equal(t, 1, av.Remaining)

	_, err = svc.Hold(context.Background(), 1, 11, 11)
	assert.NoError(t, err, "capacity held by a lapsed hold must be grantable")
}

func TestCancelWithoutActiveHold(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	svc := newReservationService(store, 15*time.Minute)

	err := svc.Cancel(context.Background(), 1, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelReleasesHold(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	svc := newReservationService(store, 15*time.Minute)

	res, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), 1, 10))

	assert.Equal(t, model.ReservationCancelled, store.reservation(res.ID).Status)
	assert.Equal(t, 0, store.tournament(1).SpotsReserved)
}

func TestSweepExpiredReclaimsCapacity(t *testing.T) {
	store := newMemStore()
	store.addTournament(openTournament(1, 8))
	svc := newReservationService(store, 35*time.Minute)

	res, err := svc.Hold(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	live, err := svc.Hold(context.Background(), 1, 11, 11)
	require.NoError(t, err)

	store.mu.Lock()
	store.reservations[res.ID].ExpiresAt = time.Now().UTC().Add(-time.Second)
	store.mu.Unlock()

	n, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.ReservationExpired, store.reservation(res.ID).Status)
	assert.Equal(t, model.ReservationActive, store.reservation(live.ID).Status)
	assert.Equal(t, 1, store.tournament(1).SpotsReserved)

	// A second sweep finds nothing; the transition is idempotent.
	n, err = svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
