package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/bookingcore/internal/core/domain"
)

type Catalog interface {
	Lookup(ctx context.Context, itemType domain.ItemType, itemID uuid.UUID) (*domain.CatalogEntry, error)
}

type PaymentGateway interface {
	CreateChargeIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*domain.ChargeIntent, error)
}

// Notifier is fire-and-forget. Errors are reported for logging only.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, payload any) error
}

type AvailabilityCache interface {
	Get(ctx context.Context, eventID uuid.UUID) (*domain.Availability, error)
	Set(ctx context.Context, availability domain.Availability) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

// PaymentEventVerifier authenticates a gateway webhook by fetching the event
// back from the gateway. ok is false for events that carry no charge outcome.
type PaymentEventVerifier interface {
	VerifyEvent(ctx context.Context, eventID string) (outcome domain.PaymentOutcome, ok bool, err error)
}
