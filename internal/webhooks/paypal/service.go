package paypalwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenleafkennels/reservations-backend/internal/ledger"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/internal/webhooks"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
)

// Event types PayPal delivers for checkout and capture lifecycles.
const (
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	EventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
	EventCaptureReversed  = "PAYMENT.CAPTURE.REVERSED"
)

// Event is the envelope PayPal posts. Only the fields reconciliation needs
// are decoded; the raw payload is kept on the ledger row.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type resource struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	CustomID          string             `json:"custom_id"`
	Amount            *amount            `json:"amount"`
	Payer             *payer             `json:"payer"`
	PurchaseUnits     []purchaseUnit     `json:"purchase_units"`
	SupplementaryData *supplementaryData `json:"supplementary_data"`
}

type amount struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type payer struct {
	EmailAddress string     `json:"email_address"`
	Name         *payerName `json:"name"`
}

type payerName struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
}

type purchaseUnit struct {
	CustomID string  `json:"custom_id"`
	Amount   *amount `json:"amount"`
}

type supplementaryData struct {
	RelatedIDs *relatedIDs `json:"related_ids"`
}

type relatedIDs struct {
	OrderID string `json:"order_id"`
}

type reservationService interface {
	Claim(ctx context.Context, input reservations.ClaimInput) (*models.Reservation, error)
	Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
	Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
}

type eventProcessor interface {
	Process(ctx context.Context, input ledger.RecordInput, handle webhooks.HandlerFunc) error
}

// ServiceParams bundles the PayPal webhook dependencies.
type ServiceParams struct {
	Reservations reservationService
	Processor    eventProcessor
}

// Service translates PayPal order and capture events into reservation
// operations.
type Service struct {
	reservations reservationService
	processor    eventProcessor
}

// NewService builds the PayPal webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations service required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("event processor required")
	}
	return &Service{
		reservations: params.Reservations,
		processor:    params.Processor,
	}, nil
}

// HandleEvent runs one verified PayPal event through the ledger and the
// reservation lifecycle.
func (s *Service) HandleEvent(ctx context.Context, payload []byte) error {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paypal event")
	}
	if event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "paypal event id required")
	}

	var res resource
	if len(event.Resource) > 0 {
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paypal resource")
		}
	}

	paymentID := paymentIDFromResource(&res)

	input := ledger.RecordInput{
		Provider:  enums.PaymentProviderPayPal,
		EventID:   event.ID,
		EventType: event.EventType,
		Payload:   json.RawMessage(payload),
	}
	if paymentID != "" {
		input.IdempotencyKey = fmt.Sprintf("paypal:%s:%s", event.EventType, paymentID)
	}

	var handle webhooks.HandlerFunc
	switch event.EventType {
	case EventOrderApproved:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			reservation, err := s.claim(ctx, &res, paymentID)
			if err != nil {
				return nil, err
			}
			return &reservation.ID, nil
		}
	case EventCaptureCompleted:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			return s.confirmOrClaim(ctx, &res, paymentID)
		}
	case EventCaptureDenied, EventCaptureRefunded, EventCaptureReversed:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			reservation, err := s.reservations.Cancel(ctx, enums.PaymentProviderPayPal, paymentID)
			if err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return &reservation.ID, nil
		}
	default:
		handle = nil
	}

	return s.processor.Process(ctx, input, handle)
}

func (s *Service) claim(ctx context.Context, res *resource, paymentID string) (*models.Reservation, error) {
	puppyID, err := puppyIDFromResource(res)
	if err != nil {
		return nil, err
	}

	input := reservations.ClaimInput{
		PuppyID:           puppyID,
		Provider:          enums.PaymentProviderPayPal,
		ExternalPaymentID: paymentID,
		Channel:           "paypal_checkout",
		AmountPaid:        amountFromResource(res),
	}
	if res.Payer != nil {
		input.CustomerEmail = res.Payer.EmailAddress
		if res.Payer.Name != nil {
			input.CustomerName = strings.TrimSpace(res.Payer.Name.GivenName + " " + res.Payer.Name.Surname)
		}
	}
	return s.reservations.Claim(ctx, input)
}

// confirmOrClaim settles a completed capture. Normally the order-approved
// event already claimed, so confirm is the common path; a capture that
// arrives first claims and confirms in one pass.
func (s *Service) confirmOrClaim(ctx context.Context, res *resource, paymentID string) (*uuid.UUID, error) {
	reservation, err := s.reservations.Confirm(ctx, enums.PaymentProviderPayPal, paymentID)
	if err == nil {
		return &reservation.ID, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	reservation, err = s.claim(ctx, res, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.reservations.Confirm(ctx, enums.PaymentProviderPayPal, paymentID); err != nil {
		return nil, err
	}
	return &reservation.ID, nil
}

// paymentIDFromResource prefers the order id so that the approval and every
// capture event key the same reservation.
func paymentIDFromResource(res *resource) string {
	if res == nil {
		return ""
	}
	if res.SupplementaryData != nil && res.SupplementaryData.RelatedIDs != nil && res.SupplementaryData.RelatedIDs.OrderID != "" {
		return res.SupplementaryData.RelatedIDs.OrderID
	}
	return res.ID
}

func puppyIDFromResource(res *resource) (uuid.UUID, error) {
	raw := ""
	if res != nil {
		raw = res.CustomID
		if raw == "" && len(res.PurchaseUnits) > 0 {
			raw = res.PurchaseUnits[0].CustomID
		}
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal event missing puppy reference")
	}
	puppyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid puppy reference on paypal event")
	}
	return puppyID, nil
}

func amountFromResource(res *resource) decimal.Decimal {
	if res == nil {
		return decimal.Zero
	}
	raw := ""
	if res.Amount != nil {
		raw = res.Amount.Value
	}
	if raw == "" && len(res.PurchaseUnits) > 0 && res.PurchaseUnits[0].Amount != nil {
		raw = res.PurchaseUnits[0].Amount.Value
	}
	if raw == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}
