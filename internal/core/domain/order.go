package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPaymentPending OrderStatus = "payment_pending"
	OrderPaid           OrderStatus = "paid"
	OrderProcessing     OrderStatus = "processing"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

var AllOrderStatuses = []OrderStatus{
	OrderPending, OrderPaymentPending, OrderPaid, OrderProcessing,
	OrderCompleted, OrderCancelled, OrderRefunded,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderPaymentPending, OrderCancelled},
	OrderPaymentPending: {OrderPaid, OrderCancelled},
	OrderPaid:           {OrderProcessing, OrderRefunded},
	OrderProcessing:     {OrderCompleted, OrderRefunded},
	OrderCompleted:      {OrderRefunded},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// IsLive reports whether the order can still reach fulfillment.
func (s OrderStatus) IsLive() bool {
	return s != OrderCancelled && s != OrderRefunded
}

type ItemType string

const (
	ItemCourse  ItemType = "course"
	ItemEvent   ItemType = "event"
	ItemProduct ItemType = "product"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemCourse, ItemEvent, ItemProduct:
		return true
	}
	return false
}

type Order struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Lines            []OrderLine
	Currency         string
	Subtotal         int64
	Tax              int64
	Total            int64
	Status           OrderStatus
	PaymentReference *string
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

type OrderLine struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ItemType  ItemType
	ItemID    uuid.UUID
	BookingID *uuid.UUID
	UnitPrice int64
	Quantity  int
}

func (l OrderLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// TransitionTo moves the order along the lifecycle. On an illegal move the
// status is left untouched.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return transitionError(o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	if next == OrderCompleted {
		completed := at
		o.CompletedAt = &completed
	}
	return nil
}

// CartLine is the client's purchase intent. Prices are never taken from it.
type CartLine struct {
	ItemType  ItemType
	ItemID    uuid.UUID
	Quantity  int
	BookingID *uuid.UUID
}

// OrderEvent is one row of the append-only order audit log.
type OrderEvent struct {
	ID         int64
	OrderID    uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Reason     string
	CreatedAt  time.Time
}
