package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

var _ ports.BookingUseCase = (*BookingService)(nil)

type BookingService struct {
	store    ports.Store
	ledger   *InventoryLedger
	notifier ports.Notifier
	log      *zap.Logger
	maxSeats int
}

func NewBookingService(store ports.Store, ledger *InventoryLedger, notifier ports.Notifier, log *zap.Logger, maxSeats int) *BookingService {
	return &BookingService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		log:      log.Named("booking"),
		maxSeats: maxSeats,
	}
}

// Reserve writes a pending booking and takes the seats from the ledger in one
// transaction.
func (s *BookingService) Reserve(ctx context.Context, userID, eventID uuid.UUID, seats int) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", eventID.String()),
		attribute.Int("booking.seats", seats),
	)

	if seats < 1 || seats > s.maxSeats {
		return nil, fmt.Errorf("%w: must be between 1 and %d", domain.ErrInvalidSeats, s.maxSeats)
	}

	now := time.Now().UTC()
	var booking *domain.Booking

	err := s.store.WithinTx(ctx, func(repos ports.Repositories) error {
		event, err := repos.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}

		if err := event.IsBookable(now); err != nil {
			return err
		}

		exists, err := repos.Bookings().HasActive(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateBooking
		}

		if _, err := s.ledger.Reserve(ctx, repos, eventID, seats); err != nil {
			return err
		}

		booking = &domain.Booking{
			ID:          uuid.New(),
			UserID:      userID,
			EventID:     eventID,
			Seats:       seats,
			UnitPrice:   event.UnitPrice,
			TotalAmount: event.UnitPrice * int64(seats),
			Status:      domain.BookingPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		return repos.Bookings().Create(ctx, booking)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.ledger.invalidate(ctx, eventID)

	s.log.Info("booking reserved",
		zap.String("booking_id", booking.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.Int("seats", seats),
	)
	dispatch(ctx, s.notifier, s.log, userID, EventBookingCreated, bookingNotice(booking))

	return booking, nil
}

// Cancel is the caller-facing cancellation. A booking held by a live order
// can only be released by cancelling or refunding that order.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", bookingID.String()))

	var booking *domain.Booking

	err := s.store.WithinTx(ctx, func(repos ports.Repositories) error {
		b, err := repos.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if b.UserID != userID {
			return domain.ErrNotOwner
		}

		if b.Status == domain.BookingCancelled {
			return domain.ErrBookingCancelled
		}

		if b.OrderID != nil {
			order, err := repos.Orders().GetByID(ctx, *b.OrderID)
			if err != nil {
				return err
			}
			if order.Status.IsLive() {
				return domain.ErrBookingAttached
			}
		}

		if err := s.cancelInTx(ctx, repos, b, time.Now().UTC()); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.ledger.invalidate(ctx, booking.EventID)

	s.log.Info("booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("event_id", booking.EventID.String()),
	)
	dispatch(ctx, s.notifier, s.log, booking.UserID, EventBookingCancelled, bookingNotice(booking))

	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.UserID != userID {
		return nil, domain.ErrBookingNotFound
	}

	return b, nil
}

func (s *BookingService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.store.Bookings().ListByUser(ctx, userID)
}

// cancelInTx marks b cancelled and returns its seats. The caller invalidates
// the availability cache after commit.
func (s *BookingService) cancelInTx(ctx context.Context, repos ports.Repositories, b *domain.Booking, at time.Time) error {
	if b.Status == domain.BookingCancelled {
		return domain.ErrBookingCancelled
	}

	if err := repos.Bookings().UpdateStatus(ctx, b.ID, domain.BookingCancelled, at); err != nil {
		return err
	}

	if err := s.ledger.Release(ctx, repos, b.EventID, b.Seats); err != nil {
		return err
	}

	b.Status = domain.BookingCancelled
	b.UpdatedAt = at
	return nil
}

// confirmInTx moves a pending booking to confirmed. Capacity was taken at
// reservation time and is left alone.
func (s *BookingService) confirmInTx(ctx context.Context, repos ports.Repositories, bookingID uuid.UUID, at time.Time) error {
	b, err := repos.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}

	switch b.Status {
	case domain.BookingConfirmed:
		return nil
	case domain.BookingCancelled:
		return domain.ErrBookingCancelled
	}

	return repos.Bookings().UpdateStatus(ctx, b.ID, domain.BookingConfirmed, at)
}

func bookingNotice(b *domain.Booking) BookingNotice {
	return BookingNotice{
		BookingID: b.ID.String(),
		EventID:   b.EventID.String(),
		Seats:     b.Seats,
		Status:    string(b.Status),
	}
}
