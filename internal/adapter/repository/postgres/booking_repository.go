package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

const constraintOneActiveBooking = "bookings_one_active_per_user_event"

const bookingColumns = `id, user_id, event_id, seats, unit_price, total_amount, status, order_id, created_at, updated_at`

type BookingRepository struct {
	q DBTX
}

func NewBookingRepository(q DBTX) *BookingRepository {
	return &BookingRepository{q: q}
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
	INSERT INTO bookings (id, user_id, event_id, seats, unit_price, total_amount, status, order_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.EventID,
		booking.Seats,
		booking.UnitPrice,
		booking.TotalAmount,
		booking.Status,
		nullUUID(booking.OrderID),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintOneActiveBooking) {
			return domain.ErrDuplicateBooking
		}

		return mapError("insert booking", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
}

func (r *BookingRepository) get(ctx context.Context, query string, bookingID uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, mapError("get booking", err)
	}

	return b, nil
}

func (r *BookingRepository) HasActive(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE user_id = $1 AND event_id = $2 AND status <> 'cancelled'
	)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userID, eventID).Scan(&exists); err != nil {
		return false, mapError("check active booking", err)
	}

	return exists, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus, at time.Time) error {
	query := `
	UPDATE bookings
	SET status = $1, updated_at = $2
	WHERE id = $3
	`

	return r.exec(ctx, "update booking status", query, status, at, bookingID)
}

func (r *BookingRepository) AttachOrder(ctx context.Context, bookingID uuid.UUID, orderID *uuid.UUID, at time.Time) error {
	query := `
	UPDATE bookings
	SET order_id = $1, updated_at = $2
	WHERE id = $3
	`

	return r.exec(ctx, "attach booking to order", query, nullUUID(orderID), at, bookingID)
}

func (r *BookingRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}

	if rowsAffected == 0 {
		return domain.ErrBookingNotFound
	}

	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at`

	return r.list(ctx, "list bookings", query, userID)
}

// ListStalePending returns pending bookings that no order has picked up.
func (r *BookingRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	query := `
	SELECT ` + bookingColumns + ` FROM bookings
	WHERE status = 'pending' AND order_id IS NULL AND created_at < $1
	ORDER BY created_at
	LIMIT $2
	`

	return r.list(ctx, "list stale bookings", query, createdBefore, limit)
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}

	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(op, err)
		}

		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}

	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var orderID uuid.NullUUID

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.Seats,
		&b.UnitPrice,
		&b.TotalAmount,
		&b.Status,
		&orderID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.OrderID = uuidPtr(orderID)
	return &b, nil
}
