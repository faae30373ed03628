package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is the bookable resource. RemainingCapacity is owned by the inventory
// ledger and is only changed together with a booking row.
type Event struct {
	ID                uuid.UUID
	Title             string
	UnitPrice         int64
	TotalCapacity     int
	RemainingCapacity int
	StartTime         time.Time
	Published         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (e *Event) IsBookable(now time.Time) error {
	if !e.Published {
		return ErrEventNotPublished
	}
	if !e.StartTime.After(now) {
		return ErrEventStarted
	}
	return nil
}

type Availability struct {
	EventID   uuid.UUID `json:"event_id"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
}

// Reservation is the ledger's receipt for a capacity decrement.
type Reservation struct {
	EventID   uuid.UUID
	Seats     int
	Remaining int
}
