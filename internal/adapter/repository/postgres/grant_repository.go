package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

type AccessGrantRepository struct {
	q DBTX
}

func NewAccessGrantRepository(q DBTX) *AccessGrantRepository {
	return &AccessGrantRepository{q: q}
}

func (r *AccessGrantRepository) Create(ctx context.Context, grant *domain.AccessGrant) error {
	query := `
	INSERT INTO access_grants (id, order_id, order_line_id, user_id, kind, item_id, granted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query, grant.ID, grant.OrderID, grant.OrderLineID, grant.UserID, grant.Kind, grant.ItemID, grant.GrantedAt)
	if err != nil {
		return mapError("insert access grant", err)
	}

	return nil
}

func (r *AccessGrantRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.AccessGrant, error) {
	query := `
	SELECT id, order_id, order_line_id, user_id, kind, item_id, granted_at, revoked_at
	FROM access_grants
	WHERE order_id = $1
	ORDER BY granted_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, mapError("list access grants", err)
	}

	defer rows.Close()

	var grants []domain.AccessGrant
	for rows.Next() {
		var g domain.AccessGrant
		var revokedAt sql.NullTime
		if err := rows.Scan(&g.ID, &g.OrderID, &g.OrderLineID, &g.UserID, &g.Kind, &g.ItemID, &g.GrantedAt, &revokedAt); err != nil {
			return nil, mapError("scan access grant", err)
		}

		g.RevokedAt = timePtr(revokedAt)
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("list access grants", err)
	}

	return grants, nil
}

func (r *AccessGrantRepository) RevokeByOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (int, error) {
	query := `
	UPDATE access_grants
	SET revoked_at = $2
	WHERE order_id = $1 AND revoked_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, orderID, at)
	if err != nil {
		return 0, mapError("revoke access grants", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, mapError("revoke access grants", err)
	}

	return int(n), nil
}

func (r *AccessGrantRepository) ActiveItems(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	owned := make(map[uuid.UUID]bool)
	if len(itemIDs) == 0 {
		return owned, nil
	}

	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}

	query := `
	SELECT DISTINCT item_id
	FROM access_grants
	WHERE user_id = $1 AND revoked_at IS NULL AND item_id = ANY($2::uuid[])
	`

	rows, err := r.q.QueryContext(ctx, query, userID, pq.StringArray(ids))
	if err != nil {
		return nil, mapError("list owned items", err)
	}

	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("list owned items", err)
		}

		owned[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("list owned items", err)
	}

	return owned, nil
}
