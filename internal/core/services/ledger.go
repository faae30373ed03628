package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

var tracer = otel.Tracer("bookingcore/services")

var _ ports.AvailabilityReader = (*InventoryLedger)(nil)

// InventoryLedger is the only writer of an event's remaining capacity. Reserve
// and Release run against the repositories of the caller's transaction so the
// capacity change commits or rolls back together with the booking row.
type InventoryLedger struct {
	store ports.Store
	cache ports.AvailabilityCache
	log   *zap.Logger
}

func NewInventoryLedger(store ports.Store, cache ports.AvailabilityCache, log *zap.Logger) *InventoryLedger {
	return &InventoryLedger{
		store: store,
		cache: cache,
		log:   log.Named("ledger"),
	}
}

func (l *InventoryLedger) Reserve(ctx context.Context, repos ports.Repositories, eventID uuid.UUID, seats int) (*domain.Reservation, error) {
	if seats < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidSeats, seats)
	}

	remaining, err := repos.Events().DecrementCapacity(ctx, eventID, seats)
	if err != nil {
		return nil, err
	}

	return &domain.Reservation{EventID: eventID, Seats: seats, Remaining: remaining}, nil
}

// Release gives seats back, never past the event's total capacity.
func (l *InventoryLedger) Release(ctx context.Context, repos ports.Repositories, eventID uuid.UUID, seats int) error {
	if seats < 1 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidSeats, seats)
	}

	_, err := repos.Events().IncrementCapacity(ctx, eventID, seats)
	return err
}

func (l *InventoryLedger) Availability(ctx context.Context, eventID uuid.UUID) (*domain.Availability, error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.Availability")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID.String()))

	if l.cache != nil {
		cached, err := l.cache.Get(ctx, eventID)
		if err != nil {
			l.log.Warn("availability cache read failed", zap.String("event_id", eventID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	event, err := l.store.Events().GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	availability := domain.Availability{
		EventID:   event.ID,
		Total:     event.TotalCapacity,
		Remaining: event.RemainingCapacity,
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, availability); err != nil {
			l.log.Warn("availability cache write failed", zap.String("event_id", eventID.String()), zap.Error(err))
		}
	}

	return &availability, nil
}

// invalidate drops cached availability once a capacity change has committed.
func (l *InventoryLedger) invalidate(ctx context.Context, eventIDs ...uuid.UUID) {
	if l.cache == nil {
		return
	}
	for _, id := range eventIDs {
		if err := l.cache.Invalidate(ctx, id); err != nil {
			l.log.Warn("availability cache invalidate failed", zap.String("event_id", id.String()), zap.Error(err))
		}
	}
}
