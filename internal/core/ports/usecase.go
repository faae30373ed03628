package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/bookingcore/internal/core/domain"
)

// Inbound ports, implemented by the services and driven by the HTTP handlers
// and the sweeper.

type AvailabilityReader interface {
	Availability(ctx context.Context, eventID uuid.UUID) (*domain.Availability, error)
}

type BookingUseCase interface {
	Reserve(ctx context.Context, userID, eventID uuid.UUID, seats int) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error)
	Get(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
}

type OrderUseCase interface {
	Create(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (*domain.Order, error)
	StartPayment(ctx context.Context, orderID, userID uuid.UUID) (*domain.ChargeIntent, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, ref string) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	MarkPaidByReference(ctx context.Context, ref string) (*domain.Order, error)
	FailByReference(ctx context.Context, ref, reason string) (*domain.Order, error)
	Fulfill(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error)
	Expire(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error)
	Grants(ctx context.Context, orderID uuid.UUID) ([]domain.AccessGrant, error)
}
