package domain

import (
	"time"

	"github.com/google/uuid"
)

type GrantKind string

const (
	GrantEnrollment GrantKind = "enrollment"
	GrantSeat       GrantKind = "seat"
	GrantDownload   GrantKind = "download"
)

func GrantKindFor(t ItemType) GrantKind {
	switch t {
	case ItemCourse:
		return GrantEnrollment
	case ItemEvent:
		return GrantSeat
	default:
		return GrantDownload
	}
}

// AccessGrant is a user's right to consume a purchased item. Only the order
// lifecycle creates or revokes them.
type AccessGrant struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	OrderLineID uuid.UUID
	UserID      uuid.UUID
	Kind        GrantKind
	ItemID      uuid.UUID
	GrantedAt   time.Time
	RevokedAt   *time.Time
}

func (g *AccessGrant) IsActive() bool {
	return g.RevokedAt == nil
}
