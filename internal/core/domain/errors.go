package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDatabase               = errors.New("database error")
)

var (
	ErrEventNotFound     = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrBookingNotFound   = fmt.Errorf("%w: booking not found", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("%w: catalog item not found", ErrNotFound)
	ErrUnknownPaymentRef = fmt.Errorf("%w: no order for payment reference", ErrNotFound)
)

var (
	ErrCapacityExceeded    = fmt.Errorf("%w: capacity exceeded", ErrConflict)
	ErrDuplicateBooking    = fmt.Errorf("%w: user already has an active booking for this event", ErrConflict)
	ErrPaymentReferenceSet = fmt.Errorf("%w: payment reference already attached", ErrConflict)
	ErrLockTimeout         = fmt.Errorf("%w: resource is busy, retry later", ErrConflict)
	ErrOrderNotPending     = fmt.Errorf("%w: order is no longer pending", ErrConflict)
	ErrPaidClosedOrder     = fmt.Errorf("%w: payment received for a closed order", ErrConflict)
)

var (
	ErrInvalidSeats      = fmt.Errorf("%w: seats out of range", ErrValidation)
	ErrEventNotPublished = fmt.Errorf("%w: event is not published", ErrValidation)
	ErrEventStarted      = fmt.Errorf("%w: event has already started", ErrValidation)
	ErrBookingCancelled  = fmt.Errorf("%w: booking is already cancelled", ErrValidation)
	ErrNotOwner          = fmt.Errorf("%w: booking does not belong to caller", ErrValidation)
	ErrBookingAttached   = fmt.Errorf("%w: booking belongs to an order, cancel the order instead", ErrValidation)
	ErrOrderNotPaid      = fmt.Errorf("%w: order is not paid", ErrValidation)
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrEmptyPaymentRef   = fmt.Errorf("%w: payment reference is required", ErrValidation)
	ErrPaymentsDisabled  = fmt.Errorf("%w: payments are not configured", ErrValidation)
)

// LineError describes why a single cart line was rejected.
type LineError struct {
	Index  int    `json:"index"`
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// LineErrors carries every rejected cart line of one Create call.
type LineErrors []LineError

func (e LineErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, le := range e {
		parts = append(parts, fmt.Sprintf("line %d (%s): %s", le.Index, le.ItemID, le.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e LineErrors) Unwrap() error { return ErrValidation }

// transitionError keeps both the generic kind and the concrete move for messages.
func transitionError(from, to OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}
