package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"github.com/srgjo27/bookingcore/internal/core/domain"
	"github.com/srgjo27/bookingcore/internal/core/ports"
)

var (
	_ ports.PaymentGateway       = (*OmiseGateway)(nil)
	_ ports.PaymentEventVerifier = (*OmiseGateway)(nil)
)

// omiseAPI is the set of Omise calls the gateway makes.
type omiseAPI interface {
	CreateSource(op *operations.CreateSource) (*omise.Source, error)
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	RetrieveEvent(eventID string) (*omise.Event, error)
}

type sdkClient struct {
	c *omise.Client
}

func (s sdkClient) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	src := &omise.Source{}
	return src, s.c.Do(src, op)
}

func (s sdkClient) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	return ch, s.c.Do(ch, op)
}

func (s sdkClient) RetrieveEvent(eventID string) (*omise.Event, error) {
	ev := &omise.Event{}
	return ev, s.c.Do(ev, &operations.RetrieveEvent{EventID: eventID})
}

type OmiseGateway struct {
	api        omiseAPI
	sourceType string
	returnURI  string
}

func NewOmiseGateway(publicKey, secretKey, sourceType, returnURI string) (*OmiseGateway, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return &OmiseGateway{api: sdkClient{c: c}, sourceType: sourceType, returnURI: returnURI}, nil
}

// CreateChargeIntent creates a payment source and a pending charge on it. The
// charge id is the order's payment reference; the authorize URI is handed to
// the client to complete payment.
func (g *OmiseGateway) CreateChargeIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*domain.ChargeIntent, error) {
	if amount <= 0 || currency == "" {
		return nil, errors.New("invalid charge params")
	}

	src, err := g.api.CreateSource(&operations.CreateSource{
		Type:     g.sourceType,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	meta := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	ch, err := g.api.CreateCharge(&operations.CreateCharge{
		Amount:    amount,
		Currency:  currency,
		Source:    src.ID,
		ReturnURI: g.returnURI,
		Metadata:  meta,
	})
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	return &domain.ChargeIntent{Reference: ch.ID, ClientSecret: ch.AuthorizeURI}, nil
}

// VerifyEvent re-fetches a webhook event from Omise, so only events Omise
// actually emitted are trusted. ok is false for events that carry no charge
// outcome.
func (g *OmiseGateway) VerifyEvent(ctx context.Context, eventID string) (outcome domain.PaymentOutcome, ok bool, err error) {
	ev, err := g.api.RetrieveEvent(eventID)
	if err != nil {
		return outcome, false, fmt.Errorf("retrieve event: %w", err)
	}

	if ev.Key != "charge.complete" {
		return outcome, false, nil
	}

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return outcome, false, fmt.Errorf("marshal event data: %w", err)
	}

	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return outcome, false, fmt.Errorf("unmarshal charge: %w", err)
	}

	switch string(ch.Status) {
	case "successful":
		return domain.PaymentOutcome{Reference: ch.ID, Succeeded: true}, true, nil
	case "failed", "expired":
		reason := string(ch.Status)
		if ch.FailureCode != nil {
			reason = *ch.FailureCode
		}
		return domain.PaymentOutcome{Reference: ch.ID, Reason: reason}, true, nil
	}

	return outcome, false, nil
}
