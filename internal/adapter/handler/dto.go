package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

type CreateBookingRequest struct {
	EventID uuid.UUID `json:"event_id"`
	Seats   int       `json:"seats"`
}

type BookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Seats       int        `json:"seats"`
	UnitPrice   int64      `json:"unit_price"`
	TotalAmount int64      `json:"total_amount"`
	Status      string     `json:"status"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CartLineDTO struct {
	ItemType  string     `json:"item_type"`
	ItemID    uuid.UUID  `json:"item_id"`
	Quantity  int        `json:"quantity"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}

type CreateOrderRequest struct {
	Lines []CartLineDTO `json:"lines"`
}

type PaymentReferenceRequest struct {
	Reference string `json:"reference"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type OrderLineResponse struct {
	ID        uuid.UUID  `json:"id"`
	ItemType  string     `json:"item_type"`
	ItemID    uuid.UUID  `json:"item_id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	UnitPrice int64      `json:"unit_price"`
	Quantity  int        `json:"quantity"`
	LineTotal int64      `json:"line_total"`
}

type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	UserID           uuid.UUID           `json:"user_id"`
	Status           string              `json:"status"`
	Currency         string              `json:"currency"`
	Subtotal         int64               `json:"subtotal"`
	Tax              int64               `json:"tax"`
	Total            int64               `json:"total"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	CancelReason     string              `json:"cancel_reason,omitempty"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}

type OrderEventResponse struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type GrantResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	ItemID    uuid.UUID  `json:"item_id"`
	GrantedAt time.Time  `json:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type PaymentIntentResponse struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret"`
}

// OmiseWebhook is the part of an Omise webhook body we read. Everything else
// is fetched back from Omise.
type OmiseWebhook struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Lines   []domain.LineError `json:"lines,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		EventID:     b.EventID,
		Seats:       b.Seats,
		UnitPrice:   b.UnitPrice,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		OrderID:     b.OrderID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toOrderResponse(o *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineResponse{
			ID:        l.ID,
			ItemType:  string(l.ItemType),
			ItemID:    l.ItemID,
			BookingID: l.BookingID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		}
	}
	return OrderResponse{
		ID:               o.ID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		Currency:         o.Currency,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		Total:            o.Total,
		PaymentReference: o.PaymentReference,
		CancelReason:     o.CancelReason,
		Lines:            lines,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		CompletedAt:      o.CompletedAt,
	}
}

func (r CreateOrderRequest) cart() []domain.CartLine {
	cart := make([]domain.CartLine, len(r.Lines))
	for i, l := range r.Lines {
		cart[i] = domain.CartLine{
			ItemType:  domain.ItemType(l.ItemType),
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			BookingID: l.BookingID,
		}
	}
	return cart
}
