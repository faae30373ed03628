package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

type EventRepository struct {
	q DBTX
}

func NewEventRepository(q DBTX) *EventRepository {
	return &EventRepository{q: q}
}

func (r *EventRepository) GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	query := `
	SELECT id, title, unit_price, total_capacity, remaining_capacity, start_time, published, created_at, updated_at
	FROM events
	WHERE id = $1
	`

	var e domain.Event
	err := r.q.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID,
		&e.Title,
		&e.UnitPrice,
		&e.TotalCapacity,
		&e.RemainingCapacity,
		&e.StartTime,
		&e.Published,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrEventNotFound
		}

		return nil, mapError("get event", err)
	}

	return &e, nil
}

// DecrementCapacity takes seats only if enough remain. The UPDATE locks the
// row, so concurrent callers for the same event are serialized and the check
// and the write cannot interleave.
func (r *EventRepository) DecrementCapacity(ctx context.Context, eventID uuid.UUID, seats int) (int, error) {
	query := `
	UPDATE events
	SET remaining_capacity = remaining_capacity - $2,
		updated_at = NOW()
	WHERE id = $1 AND remaining_capacity >= $2
	RETURNING remaining_capacity
	`

	var remaining int
	err := r.q.QueryRowContext(ctx, query, eventID, seats).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}

	if !isNoRows(err) {
		return 0, mapError("decrement capacity", err)
	}

	if _, err := r.GetByID(ctx, eventID); err != nil {
		return 0, err
	}

	return 0, domain.ErrCapacityExceeded
}

// IncrementCapacity returns seats, clamped to total_capacity.
func (r *EventRepository) IncrementCapacity(ctx context.Context, eventID uuid.UUID, seats int) (int, error) {
	query := `
	UPDATE events
	SET remaining_capacity = LEAST(total_capacity, remaining_capacity + $2),
		updated_at = NOW()
	WHERE id = $1
	RETURNING remaining_capacity
	`

	var remaining int
	err := r.q.QueryRowContext(ctx, query, eventID, seats).Scan(&remaining)
	if err != nil {
		if isNoRows(err) {
			return 0, domain.ErrEventNotFound
		}

		return 0, mapError("increment capacity", err)
	}

	return remaining, nil
}
