package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

// CatalogRepository answers price and availability from the catalog tables
// owned by the rest of the platform.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Lookup(ctx context.Context, itemType domain.ItemType, itemID uuid.UUID) (*domain.CatalogEntry, error) {
	var query string
	switch itemType {
	case domain.ItemCourse:
		query = `SELECT price, published FROM courses WHERE id = $1`
	case domain.ItemProduct:
		query = `SELECT price, active FROM products WHERE id = $1`
	case domain.ItemEvent:
		query = `SELECT unit_price, published AND start_time > NOW() FROM events WHERE id = $1`
	default:
		return nil, fmt.Errorf("%w: unknown item type %q", domain.ErrValidation, itemType)
	}

	entry := domain.CatalogEntry{ItemType: itemType, ItemID: itemID}
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&entry.Price, &entry.Available)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrItemNotFound
		}

		return nil, mapError("lookup catalog item", err)
	}

	return &entry, nil
}
