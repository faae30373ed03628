package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/bookingcore/internal/core/domain"
)

// EventRepository owns remaining_capacity. Decrement and Increment are single
// conditional statements; callers never read-modify-write the column.
type EventRepository interface {
	GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	DecrementCapacity(ctx context.Context, eventID uuid.UUID, seats int) (remaining int, err error)
	IncrementCapacity(ctx context.Context, eventID uuid.UUID, seats int) (remaining int, err error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	GetForUpdate(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	HasActive(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus, at time.Time) error
	AttachOrder(ctx context.Context, bookingID uuid.UUID, orderID *uuid.UUID, at time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetByPaymentReference(ctx context.Context, ref string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	AppendEvent(ctx context.Context, event *domain.OrderEvent) error
	ListEvents(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
}

type AccessGrantRepository interface {
	Create(ctx context.Context, grant *domain.AccessGrant) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.AccessGrant, error)
	RevokeByOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (int, error)
	ActiveItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Repositories is one consistent view of the store. Inside WithinTx every
// repository shares the same transaction.
type Repositories interface {
	Events() EventRepository
	Bookings() BookingRepository
	Orders() OrderRepository
	Grants() AccessGrantRepository
}

// Store runs fn in a single transaction; a non-nil error from fn rolls back
// every write made through repos.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
