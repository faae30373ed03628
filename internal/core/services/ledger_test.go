package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
	"github.com/srgjo27/bookingcore/internal/core/ports/mocks"
	"github.com/srgjo27/bookingcore/internal/core/services"
)

func TestLedger_ReserveIsAllOrNothing(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(3, 100)
	ledger := services.NewInventoryLedger(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	var res *domain.Reservation
	err := store.WithinTx(ctx, func(repos ports.Repositories) error {
		var err error
		res, err = ledger.Reserve(ctx, repos, event.ID, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)

	err = store.WithinTx(ctx, func(repos ports.Repositories) error {
		_, err := ledger.Reserve(ctx, repos, event.ID, 2)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 1, store.event(event.ID).RemainingCapacity)
}

func TestLedger_ReserveRolledBackWithCallerTx(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(3, 100)
	ledger := services.NewInventoryLedger(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()
	boom := errors.New("booking insert failed")

	err := store.WithinTx(ctx, func(repos ports.Repositories) error {
		if _, err := ledger.Reserve(ctx, repos, event.ID, 3); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, store.event(event.ID).RemainingCapacity)
}

func TestLedger_ReleaseIsClampedToTotal(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(4, 100)
	ledger := services.NewInventoryLedger(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos ports.Repositories) error {
		if _, err := ledger.Reserve(ctx, repos, event.ID, 1); err != nil {
			return err
		}
		if err := ledger.Release(ctx, repos, event.ID, 1); err != nil {
			return err
		}
		return ledger.Release(ctx, repos, event.ID, 1)
	})

	require.NoError(t, err)
	assert.Equal(t, 4, store.event(event.ID).RemainingCapacity)
}

func TestLedger_RejectsNonPositiveSeats(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(4, 100)
	ledger := services.NewInventoryLedger(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos ports.Repositories) error {
		_, err := ledger.Reserve(ctx, repos, event.ID, 0)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.WithinTx(ctx, func(repos ports.Repositories) error {
		return ledger.Release(ctx, repos, event.ID, -1)
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLedger_AvailabilityReadsThroughCache(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(8, 100)
	cache := mocks.NewAvailabilityCache(t)
	ledger := services.NewInventoryLedger(store, cache, zaptest.NewLogger(t))
	ctx := context.Background()

	want := domain.Availability{EventID: event.ID, Total: 8, Remaining: 8}
	cache.On("Get", mock.Anything, event.ID).Return(nil, nil).Once()
	cache.On("Set", mock.Anything, want).Return(nil).Once()

	got, err := ledger.Availability(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	cached := domain.Availability{EventID: event.ID, Total: 8, Remaining: 5}
	cache.On("Get", mock.Anything, event.ID).Return(&cached, nil).Once()

	got, err = ledger.Availability(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Remaining)
}

func TestLedger_AvailabilityFallsBackWhenCacheFails(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(8, 100)
	cache := mocks.NewAvailabilityCache(t)
	ledger := services.NewInventoryLedger(store, cache, zaptest.NewLogger(t))
	ctx := context.Background()

	cache.On("Get", mock.Anything, event.ID).Return(nil, errors.New("connection refused")).Once()
	cache.On("Set", mock.Anything, domain.Availability{EventID: event.ID, Total: 8, Remaining: 8}).Return(errors.New("connection refused")).Once()

	got, err := ledger.Availability(ctx, event.ID)

	require.NoError(t, err)
	assert.Equal(t, 8, got.Remaining)
}

func TestLedger_AvailabilityUnknownEvent(t *testing.T) {
	store := newMemStore()
	ledger := services.NewInventoryLedger(store, nil, zaptest.NewLogger(t))

	_, err := ledger.Availability(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_InvalidatesCachedAvailability(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(8, 100)
	cache := mocks.NewAvailabilityCache(t)
	log := zaptest.NewLogger(t)
	svc := services.NewBookingService(store, services.NewInventoryLedger(store, cache, log), nil, log, maxSeats)
	ctx := context.Background()

	cache.On("Invalidate", mock.Anything, event.ID).Return(nil).Twice()

	b, err := svc.Reserve(ctx, uuid.New(), event.ID, 2)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, b.ID, b.UserID)
	require.NoError(t, err)
}

func TestReserve_FailureDoesNotTouchCache(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(1, 100)
	cache := mocks.NewAvailabilityCache(t)
	log := zaptest.NewLogger(t)
	svc := services.NewBookingService(store, services.NewInventoryLedger(store, cache, log), nil, log, maxSeats)

	_, err := svc.Reserve(context.Background(), uuid.New(), event.ID, 2)

	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}
