package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

// WebhookHandler receives Omise events. The body is never trusted: only the
// event id is read and the event itself is fetched back from Omise.
type WebhookHandler struct {
	orders   ports.OrderUseCase
	verifier ports.PaymentEventVerifier
	log      *zap.Logger
}

func NewWebhookHandler(orders ports.OrderUseCase, verifier ports.PaymentEventVerifier, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{orders: orders, verifier: verifier, log: log.Named("http.webhook")}
}

// Omise retries any non-2xx delivery, so only failures worth retrying answer
// with an error status.
func (h *WebhookHandler) Omise(w http.ResponseWriter, r *http.Request) {
	var req OmiseWebhook
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid_event", "event id is required")
		return
	}

	outcome, ok, err := h.verifier.VerifyEvent(r.Context(), req.ID)
	if err != nil {
		h.log.Warn("webhook verification failed", zap.String("event_id", req.ID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "verification_failed", "could not verify event")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	log := h.log.With(zap.String("event_id", req.ID), zap.String("reference", outcome.Reference))

	if !outcome.Succeeded {
		if _, err := h.orders.FailByReference(r.Context(), outcome.Reference, outcome.Reason); err != nil {
			h.fail(w, log, err)
			return
		}
		log.Info("payment failed", zap.String("reason", outcome.Reason))
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}

	order, err := h.orders.MarkPaidByReference(r.Context(), outcome.Reference)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	if order.Status == domain.OrderPaid {
		if _, err := h.orders.Fulfill(r.Context(), order.ID); err != nil {
			log.Error("fulfillment after payment failed", zap.String("order_id", order.ID.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "fulfillment_failed", "order is paid but not fulfilled")
			return
		}
	}

	log.Info("payment confirmed", zap.String("order_id", order.ID.String()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (h *WebhookHandler) fail(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownPaymentRef):
		log.Warn("webhook for unknown payment reference")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, domain.ErrPaidClosedOrder):
		log.Error("charge captured for a closed order, refund required", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "refund_required"})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		log.Warn("webhook does not apply to order state", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		handleError(w, log, err)
	}
}
