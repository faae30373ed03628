package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

type OrderHandler struct {
	svc ports.OrderUseCase
	log *zap.Logger
}

func NewOrderHandler(svc ports.OrderUseCase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log.Named("http.order")}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.svc.Create(r.Context(), principalFrom(r.Context()).UserID, req.cart())
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.owned(r.Context(), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.owned(r.Context(), id); err != nil {
		handleError(w, h.log, err)
		return
	}

	events, err := h.svc.History(r.Context(), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	out := make([]OrderEventResponse, len(events))
	for i, e := range events {
		out[i] = OrderEventResponse{
			ID:         e.ID,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) GetGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.owned(r.Context(), id); err != nil {
		handleError(w, h.log, err)
		return
	}

	grants, err := h.svc.Grants(r.Context(), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	out := make([]GrantResponse, len(grants))
	for i, g := range grants {
		out[i] = GrantResponse{
			ID:        g.ID,
			Kind:      string(g.Kind),
			ItemID:    g.ItemID,
			GrantedAt: g.GrantedAt,
			RevokedAt: g.RevokedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	intent, err := h.svc.StartPayment(r.Context(), id, principalFrom(r.Context()).UserID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentIntentResponse{
		Reference:    intent.Reference,
		ClientSecret: intent.ClientSecret,
	})
}

// AttachPaymentReference records a charge made outside StartPayment. Admin only:
// a reference no gateway knows about would never be confirmed or expired.
func (h *OrderHandler) AttachPaymentReference(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req PaymentReferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.respond(w, func() (*domain.Order, error) {
		return h.svc.AttachPaymentReference(r.Context(), id, req.Reference)
	})
}

func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	h.respond(w, func() (*domain.Order, error) {
		return h.svc.MarkPaid(r.Context(), id)
	})
}

func (h *OrderHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	h.respond(w, func() (*domain.Order, error) {
		return h.svc.Fulfill(r.Context(), id)
	})
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.owned(r.Context(), id); err != nil {
		handleError(w, h.log, err)
		return
	}

	h.respond(w, func() (*domain.Order, error) {
		return h.svc.Cancel(r.Context(), id, req.Reason)
	})
}

func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.respond(w, func() (*domain.Order, error) {
		return h.svc.Refund(r.Context(), id, req.Reason)
	})
}

// owned loads the order if the caller may act on it. Admins may act on any
// order, everyone else only on their own.
func (h *OrderHandler) owned(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	p := principalFrom(ctx)
	if p.IsAdmin() {
		return h.svc.Get(ctx, orderID)
	}
	return h.svc.GetForUser(ctx, orderID, p.UserID)
}

func (h *OrderHandler) respond(w http.ResponseWriter, fn func() (*domain.Order, error)) {
	o, err := fn()
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
