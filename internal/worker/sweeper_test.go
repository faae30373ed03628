package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports/mocks"
)

type fakeOrders struct {
	ids    []uuid.UUID
	err    error
	before time.Time
	limit  int
}

func (f *fakeOrders) ListStalePending(_ context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	f.before, f.limit = createdBefore, limit
	return f.ids, f.err
}

type fakeBookings struct {
	list   []domain.Booking
	err    error
	before time.Time
}

func (f *fakeBookings) ListStalePending(_ context.Context, createdBefore time.Time, _ int) ([]domain.Booking, error) {
	f.before = createdBefore
	return f.list, f.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T, cfg Config, so *fakeOrders, sb *fakeBookings) (*Sweeper, *mocks.OrderUseCase, *mocks.BookingUseCase) {
	t.Helper()
	orders := mocks.NewOrderUseCase(t)
	bookings := mocks.NewBookingUseCase(t)
	s := NewSweeper(so, sb, orders, bookings, cfg, zaptest.NewLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, orders, bookings
}

func TestSweep_CancelsStaleOrders(t *testing.T) {
	stale := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	so := &fakeOrders{ids: stale}
	s, orders, _ := newTestSweeper(t, Config{OrderTTL: 30 * time.Minute, BatchSize: 50}, so, &fakeBookings{})

	orders.On("Expire", mock.Anything, stale[0], "expired").Return(&domain.Order{Status: domain.OrderCancelled}, nil).Once()
	orders.On("Expire", mock.Anything, stale[1], "expired").
		Return(nil, fmt.Errorf("%w: order is payment_pending", domain.ErrOrderNotPending)).Once()
	orders.On("Expire", mock.Anything, stale[2], "expired").Return(&domain.Order{Status: domain.OrderCancelled}, nil).Once()

	cancelledOrders, cancelledBookings := s.Sweep(context.Background())

	assert.Equal(t, 2, cancelledOrders)
	assert.Zero(t, cancelledBookings)
	assert.Equal(t, fixedNow.Add(-30*time.Minute), so.before)
	assert.Equal(t, 50, so.limit)
}

func TestSweep_CancelsStaleBookingsAsTheirOwner(t *testing.T) {
	b1 := domain.Booking{ID: uuid.New(), UserID: uuid.New(), EventID: uuid.New(), Seats: 2}
	b2 := domain.Booking{ID: uuid.New(), UserID: uuid.New(), EventID: uuid.New(), Seats: 1}
	sb := &fakeBookings{list: []domain.Booking{b1, b2}}
	s, _, bookings := newTestSweeper(t, Config{BookingTTL: 15 * time.Minute}, &fakeOrders{}, sb)

	bookings.On("Cancel", mock.Anything, b1.ID, b1.UserID).Return(&b1, nil).Once()
	bookings.On("Cancel", mock.Anything, b2.ID, b2.UserID).Return(nil, domain.ErrBookingAttached).Once()

	cancelledOrders, cancelledBookings := s.Sweep(context.Background())

	assert.Zero(t, cancelledOrders)
	assert.Equal(t, 1, cancelledBookings)
	assert.Equal(t, fixedNow.Add(-15*time.Minute), sb.before)
}

func TestSweep_ZeroTTLSkipsKind(t *testing.T) {
	so := &fakeOrders{ids: []uuid.UUID{uuid.New()}}
	sb := &fakeBookings{list: []domain.Booking{{ID: uuid.New()}}}
	s, _, _ := newTestSweeper(t, Config{}, so, sb)

	cancelledOrders, cancelledBookings := s.Sweep(context.Background())

	assert.Zero(t, cancelledOrders)
	assert.Zero(t, cancelledBookings)
	assert.True(t, so.before.IsZero())
	assert.True(t, sb.before.IsZero())
}

func TestSweep_ListFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	so := &fakeOrders{err: domain.ErrDatabase}
	s := NewSweeper(so, &fakeBookings{}, mocks.NewOrderUseCase(t), mocks.NewBookingUseCase(t),
		Config{OrderTTL: time.Minute}, zap.New(core))

	cancelled, _ := s.Sweep(context.Background())

	assert.Zero(t, cancelled)
	assert.Equal(t, 1, logs.FilterMessage("list stale orders").Len())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s, _, _ := newTestSweeper(t, Config{Interval: time.Hour, OrderTTL: time.Minute}, &fakeOrders{}, &fakeBookings{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	s, _, _ := newTestSweeper(t, Config{Interval: time.Minute}, &fakeOrders{}, &fakeBookings{})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper kept running")
	}
}
