package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

const constraintPaymentReference = "orders_payment_reference_key"

const orderColumns = `id, user_id, currency, subtotal, tax, total, status, payment_reference, cancel_reason, created_at, updated_at, completed_at`

type OrderRepository struct {
	q DBTX
}

func NewOrderRepository(q DBTX) *OrderRepository {
	return &OrderRepository{q: q}
}

// Create inserts the header and every line. Callers run it inside WithinTx so
// a failed line leaves no header behind.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	queryHeader := `
	INSERT INTO orders (id, user_id, currency, subtotal, tax, total, status, payment_reference, cancel_reason, created_at, updated_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, queryHeader,
		order.ID,
		order.UserID,
		order.Currency,
		order.Subtotal,
		order.Tax,
		order.Total,
		order.Status,
		nullString(order.PaymentReference),
		order.CancelReason,
		order.CreatedAt,
		order.UpdatedAt,
		nullTime(order.CompletedAt),
	)
	if err != nil {
		return mapError("insert order header", err)
	}

	queryLine := `
	INSERT INTO order_lines (id, order_id, position, item_type, item_id, booking_id, unit_price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	stmt, err := r.q.PrepareContext(ctx, queryLine)
	if err != nil {
		return mapError("prepare order line statement", err)
	}

	defer stmt.Close()

	for i, line := range order.Lines {
		_, err := stmt.ExecContext(ctx, line.ID, order.ID, i, line.ItemType, line.ItemID, nullUUID(line.BookingID), line.UnitPrice, line.Quantity)
		if err != nil {
			return mapError("insert order line", err)
		}
	}

	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (r *OrderRepository) GetByPaymentReference(ctx context.Context, ref string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, ref)
}

func (r *OrderRepository) get(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var o domain.Order
	var ref sql.NullString
	var completedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&o.ID,
		&o.UserID,
		&o.Currency,
		&o.Subtotal,
		&o.Tax,
		&o.Total,
		&o.Status,
		&ref,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrOrderNotFound
		}

		return nil, mapError("get order", err)
	}

	if ref.Valid {
		o.PaymentReference = &ref.String
	}
	o.CompletedAt = timePtr(completedAt)

	lines, err := r.lines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *OrderRepository) lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
	SELECT id, order_id, item_type, item_id, booking_id, unit_price, quantity
	FROM order_lines
	WHERE order_id = $1
	ORDER BY position
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, mapError("list order lines", err)
	}

	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		var bookingID uuid.NullUUID
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemType, &l.ItemID, &bookingID, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, mapError("scan order line", err)
		}

		l.BookingID = uuidPtr(bookingID)
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("list order lines", err)
	}

	return lines, nil
}

// Update persists the mutable part of an order. Totals and lines are fixed at
// creation and are never written here.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
	UPDATE orders
	SET status = $2,
		payment_reference = $3,
		cancel_reason = $4,
		updated_at = $5,
		completed_at = $6
	WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.Status,
		nullString(order.PaymentReference),
		order.CancelReason,
		order.UpdatedAt,
		nullTime(order.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err, constraintPaymentReference) {
			return domain.ErrPaymentReferenceSet
		}

		return mapError("update order", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError("update order", err)
	}

	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepository) AppendEvent(ctx context.Context, event *domain.OrderEvent) error {
	query := `
	INSERT INTO order_events (order_id, from_status, to_status, reason, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query, event.OrderID, event.FromStatus, event.ToStatus, event.Reason, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		return mapError("append order event", err)
	}

	return nil
}

func (r *OrderRepository) ListEvents(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	query := `
	SELECT id, order_id, from_status, to_status, reason, created_at
	FROM order_events
	WHERE order_id = $1
	ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, mapError("list order events", err)
	}

	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var e domain.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.Reason, &e.CreatedAt); err != nil {
			return nil, mapError("scan order event", err)
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("list order events", err)
	}

	return events, nil
}

func (r *OrderRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
	SELECT id FROM orders
	WHERE status = 'pending' AND created_at < $1
	ORDER BY created_at
	LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, mapError("list stale orders", err)
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("list stale orders", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("list stale orders", err)
	}

	return ids, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
