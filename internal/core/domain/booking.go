package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	EventID     uuid.UUID
	Seats       int
	UnitPrice   int64
	TotalAmount int64
	Status      BookingStatus
	OrderID     *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}
