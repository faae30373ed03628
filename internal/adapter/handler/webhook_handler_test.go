package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/srgjo27/bookingcore/internal/adapter/handler"
	"github.com/srgjo27/bookingcore/internal/core/domain"
)

const webhookPath = "/api/v1/webhooks/omise"

func TestOmiseWebhook_SuccessfulChargePaysAndFulfills(t *testing.T) {
	api := newTestAPI(t)
	orderID := uuid.New()
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_1").
		Return(domain.PaymentOutcome{Reference: "chrg_1", Succeeded: true}, true, nil).Once()
	api.orders.On("MarkPaidByReference", mock.Anything, "chrg_1").
		Return(&domain.Order{ID: orderID, Status: domain.OrderPaid}, nil).Once()
	api.orders.On("Fulfill", mock.Anything, orderID).
		Return(&domain.Order{ID: orderID, Status: domain.OrderCompleted}, nil).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_1", Key: "charge.complete"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decodeBody[map[string]string](t, rec)["status"])
}

func TestOmiseWebhook_RedeliveryAfterFulfillmentIsNoop(t *testing.T) {
	api := newTestAPI(t)
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_1").
		Return(domain.PaymentOutcome{Reference: "chrg_1", Succeeded: true}, true, nil).Once()
	api.orders.On("MarkPaidByReference", mock.Anything, "chrg_1").
		Return(&domain.Order{ID: uuid.New(), Status: domain.OrderCompleted}, nil).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_1"})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOmiseWebhook_FailedChargeCancels(t *testing.T) {
	api := newTestAPI(t)
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_2").
		Return(domain.PaymentOutcome{Reference: "chrg_2", Reason: "insufficient_fund"}, true, nil).Once()
	api.orders.On("FailByReference", mock.Anything, "chrg_2", "insufficient_fund").
		Return(&domain.Order{Status: domain.OrderCancelled}, nil).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_2"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeBody[map[string]string](t, rec)["status"])
}

func TestOmiseWebhook_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		setup func(api *testAPI)
	}{
		{
			name: "event without charge outcome",
			setup: func(api *testAPI) {
				api.verifier.On("VerifyEvent", mock.Anything, "evnt_3").
					Return(domain.PaymentOutcome{}, false, nil).Once()
			},
		},
		{
			name: "unknown reference",
			setup: func(api *testAPI) {
				api.verifier.On("VerifyEvent", mock.Anything, "evnt_3").
					Return(domain.PaymentOutcome{Reference: "chrg_x", Succeeded: true}, true, nil).Once()
				api.orders.On("MarkPaidByReference", mock.Anything, "chrg_x").
					Return(nil, domain.ErrUnknownPaymentRef).Once()
			},
		},
		{
			name: "failure after payment",
			setup: func(api *testAPI) {
				api.verifier.On("VerifyEvent", mock.Anything, "evnt_3").
					Return(domain.PaymentOutcome{Reference: "chrg_3", Reason: "expired"}, true, nil).Once()
				api.orders.On("FailByReference", mock.Anything, "chrg_3", "expired").
					Return(nil, fmt.Errorf("%w: paid -> cancelled", domain.ErrInvalidStateTransition)).Once()
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			tt.setup(api)

			rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_3"})

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ignored", decodeBody[map[string]string](t, rec)["status"])
		})
	}
}

func TestOmiseWebhook_PaymentForClosedOrderIsFlagged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	api := newTestAPIWithLogger(t, zap.New(core))
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_late").
		Return(domain.PaymentOutcome{Reference: "chrg_late", Succeeded: true}, true, nil).Once()
	api.orders.On("MarkPaidByReference", mock.Anything, "chrg_late").
		Return(nil, fmt.Errorf("%w: order is cancelled", domain.ErrPaidClosedOrder)).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_late"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refund_required", decodeBody[map[string]string](t, rec)["status"])
	assert.Equal(t, 1, logs.FilterMessage("charge captured for a closed order, refund required").Len())
}

func TestOmiseWebhook_VerificationFailure(t *testing.T) {
	api := newTestAPI(t)
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_forged").
		Return(domain.PaymentOutcome{}, false, errors.New("event not found")).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_forged"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestOmiseWebhook_FulfillFailureAsksForRetry(t *testing.T) {
	api := newTestAPI(t)
	orderID := uuid.New()
	api.verifier.On("VerifyEvent", mock.Anything, "evnt_1").
		Return(domain.PaymentOutcome{Reference: "chrg_1", Succeeded: true}, true, nil).Once()
	api.orders.On("MarkPaidByReference", mock.Anything, "chrg_1").
		Return(&domain.Order{ID: orderID, Status: domain.OrderPaid}, nil).Once()
	api.orders.On("Fulfill", mock.Anything, orderID).Return(nil, domain.ErrDatabase).Once()

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{ID: "evnt_1"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOmiseWebhook_MissingID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, webhookPath, "", handler.OmiseWebhook{Key: "charge.complete"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
