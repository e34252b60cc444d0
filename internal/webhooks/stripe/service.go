package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/goldenleafkennels/reservations-backend/internal/ledger"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/internal/webhooks"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
)

type reservationService interface {
	Claim(ctx context.Context, input reservations.ClaimInput) (*models.Reservation, error)
	Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
	Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
}

type eventProcessor interface {
	Process(ctx context.Context, input ledger.RecordInput, handle webhooks.HandlerFunc) error
}

// ServiceParams bundles the Stripe webhook dependencies.
type ServiceParams struct {
	Reservations reservationService
	Processor    eventProcessor
}

// Service translates Stripe checkout events into reservation operations.
type Service struct {
	reservations reservationService
	processor    eventProcessor
}

// NewService builds the Stripe webhook service.
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

// HandleEvent runs one verified Stripe event through the ledger and the
// reservation lifecycle. Unrecognized event types are recorded and marked
// processed without touching reservations.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var session stripe.CheckoutSession
	if isCheckoutSessionEvent(event.Type) {
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
	}

	input := ledger.RecordInput{
		Provider:  enums.PaymentProviderStripe,
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   json.RawMessage(event.Data.Raw),
	}
	// The session id is the payment identity: redeliveries under a fresh
	// event id still collapse onto the same ledger row through it.
	if session.ID != "" {
		input.IdempotencyKey = fmt.Sprintf("stripe:%s:%s", event.Type, session.ID)
	}

	var handle webhooks.HandlerFunc
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			return s.claimFromSession(ctx, &session)
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			reservation, err := s.reservations.Confirm(ctx, enums.PaymentProviderStripe, session.ID)
			if err != nil {
				return nil, err
			}
			return &reservation.ID, nil
		}
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		handle = func(ctx context.Context) (*uuid.UUID, error) {
			return s.cancelFromSession(ctx, &session)
		}
	default:
		handle = nil
	}

	return s.processor.Process(ctx, input, handle)
}

// claimFromSession claims the puppy the checkout referenced and, when Stripe
// already settled the charge, confirms in the same pass.
func (s *Service) claimFromSession(ctx context.Context, session *stripe.CheckoutSession) (*uuid.UUID, error) {
	puppyID, err := puppyIDFromSession(session)
	if err != nil {
		return nil, err
	}

	input := reservations.ClaimInput{
		PuppyID:           puppyID,
		Provider:          enums.PaymentProviderStripe,
		ExternalPaymentID: session.ID,
		Channel:           "stripe_checkout",
		AmountPaid:        decimal.New(session.AmountTotal, -2),
	}
	if session.CustomerDetails != nil {
		input.CustomerName = session.CustomerDetails.Name
		input.CustomerEmail = session.CustomerDetails.Email
		input.CustomerPhone = session.CustomerDetails.Phone
	}

	reservation, err := s.reservations.Claim(ctx, input)
	if err != nil {
		return nil, err
	}

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		if _, err := s.reservations.Confirm(ctx, enums.PaymentProviderStripe, session.ID); err != nil {
			return nil, err
		}
	}
	return &reservation.ID, nil
}

// cancelFromSession releases the hold for a failed or abandoned checkout. A
// session that never claimed anything is not an error.
func (s *Service) cancelFromSession(ctx context.Context, session *stripe.CheckoutSession) (*uuid.UUID, error) {
	reservation, err := s.reservations.Cancel(ctx, enums.PaymentProviderStripe, session.ID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation.ID, nil
}

func puppyIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	if session == nil || session.ClientReferenceID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing puppy reference")
	}
	puppyID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid puppy reference on checkout session")
	}
	return puppyID, nil
}

func isCheckoutSessionEvent(eventType stripe.EventType) bool {
	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		return true
	default:
		return false
	}
}
