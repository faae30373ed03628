package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

type staleOrderLister interface {
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
}

type staleBookingLister interface {
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error)
}

type Config struct {
	Interval   time.Duration
	OrderTTL   time.Duration // zero disables order expiry
	BookingTTL time.Duration // zero disables booking expiry
	BatchSize  int
}

// Sweeper expires abandoned pending orders and bookings. It goes through the
// public Expire and Cancel operations, so capacity is released the same way a
// user cancellation releases it.
type Sweeper struct {
	staleOrders   staleOrderLister
	staleBookings staleBookingLister
	orders        ports.OrderUseCase
	bookings      ports.BookingUseCase
	cfg           Config
	log           *zap.Logger
	now           func() time.Time
}

func NewSweeper(
	staleOrders staleOrderLister,
	staleBookings staleBookingLister,
	orders ports.OrderUseCase,
	bookings ports.BookingUseCase,
	cfg Config,
	log *zap.Logger,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Sweeper{
		staleOrders:   staleOrders,
		staleBookings: staleBookings,
		orders:        orders,
		bookings:      bookings,
		cfg:           cfg,
		log:           log.Named("sweeper"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 || (s.cfg.OrderTTL <= 0 && s.cfg.BookingTTL <= 0) {
		s.log.Info("sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("order_ttl", s.cfg.OrderTTL),
		zap.Duration("booking_ttl", s.cfg.BookingTTL),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and reports how many orders and bookings it cancelled.
func (s *Sweeper) Sweep(ctx context.Context) (orders, bookings int) {
	if s.cfg.OrderTTL > 0 {
		orders = s.sweepOrders(ctx)
	}
	if s.cfg.BookingTTL > 0 {
		bookings = s.sweepBookings(ctx)
	}
	return orders, bookings
}

func (s *Sweeper) sweepOrders(ctx context.Context) int {
	ids, err := s.staleOrders.ListStalePending(ctx, s.now().Add(-s.cfg.OrderTTL), s.cfg.BatchSize)
	if err != nil {
		s.log.Error("list stale orders", zap.Error(err))
		return 0
	}

	cancelled := 0
	for _, id := range ids {
		_, err := s.orders.Expire(ctx, id, "expired")
		switch {
		case err == nil:
			cancelled++
			s.log.Info("order expired", zap.String("order_id", id.String()))
		case errors.Is(err, domain.ErrOrderNotPending):
			// payment started or order closed since it was listed
		default:
			s.log.Warn("expire order", zap.String("order_id", id.String()), zap.Error(err))
		}
	}
	return cancelled
}

func (s *Sweeper) sweepBookings(ctx context.Context) int {
	list, err := s.staleBookings.ListStalePending(ctx, s.now().Add(-s.cfg.BookingTTL), s.cfg.BatchSize)
	if err != nil {
		s.log.Error("list stale bookings", zap.Error(err))
		return 0
	}

	cancelled := 0
	for _, b := range list {
		_, err := s.bookings.Cancel(ctx, b.ID, b.UserID)
		switch {
		case err == nil:
			cancelled++
			s.log.Info("booking expired",
				zap.String("booking_id", b.ID.String()),
				zap.String("event_id", b.EventID.String()),
				zap.Int("seats", b.Seats),
			)
		case errors.Is(err, domain.ErrBookingAttached), errors.Is(err, domain.ErrBookingCancelled):
		default:
			s.log.Warn("expire booking", zap.String("booking_id", b.ID.String()), zap.Error(err))
		}
	}
	return cancelled
}
