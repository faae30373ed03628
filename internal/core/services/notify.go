package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/ports"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventOrderCreated     = "order.created"
	EventOrderPaymentSent = "order.payment_pending"
	EventOrderPaid        = "order.paid"
	EventOrderCompleted   = "order.completed"
	EventOrderCancelled   = "order.cancelled"
	EventOrderRefunded    = "order.refunded"
)

// dispatch sends a notification in the background. The core transition has
// already committed, so a failure is only logged.
func dispatch(ctx context.Context, n ports.Notifier, log *zap.Logger, userID uuid.UUID, event string, payload any) {
	if n == nil {
		return
	}

	go func(ctx context.Context) {
		if err := n.Notify(ctx, userID, event, payload); err != nil {
			log.Warn("notification failed",
				zap.String("event", event),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}(context.WithoutCancel(ctx))
}

type BookingNotice struct {
	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	Seats     int    `json:"seats"`
	Status    string `json:"status"`
}

type OrderNotice struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Total   int64  `json:"total"`
	Reason  string `json:"reason,omitempty"`
}
