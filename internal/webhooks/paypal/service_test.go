package paypalwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/goldenleafkennels/reservations-backend/internal/ledger"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/internal/webhooks"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
)

type stubReservations struct {
	claims     []reservations.ClaimInput
	confirms   []string
	cancels    []string
	confirmErr error
	cancelErr  error
}

func (s *stubReservations) Claim(ctx context.Context, input reservations.ClaimInput) (*models.Reservation, error) {
	s.claims = append(s.claims, input)
	return &models.Reservation{ID: uuid.New(), PuppyID: input.PuppyID}, nil
}

func (s *stubReservations) Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	if s.confirmErr != nil {
		err := s.confirmErr
		s.confirmErr = nil
		return nil, err
	}
	s.confirms = append(s.confirms, externalPaymentID)
	return &models.Reservation{ID: uuid.New(), Status: enums.ReservationStatusConfirmed}, nil
}

func (s *stubReservations) Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	s.cancels = append(s.cancels, externalPaymentID)
	return &models.Reservation{ID: uuid.New(), Status: enums.ReservationStatusCancelled}, nil
}

type passthroughProcessor struct {
	recorded []ledger.RecordInput
	handled  []bool
}

func (p *passthroughProcessor) Process(ctx context.Context, input ledger.RecordInput, handle webhooks.HandlerFunc) error {
	p.recorded = append(p.recorded, input)
	p.handled = append(p.handled, handle != nil)
	if handle == nil {
		return nil
	}
	_, err := handle(ctx)
	return err
}

func newPayPalService(t *testing.T, res *stubReservations, proc *passthroughProcessor) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Reservations: res, Processor: proc})
	require.NoError(t, err)
	return svc
}

func eventPayload(t *testing.T, eventType string, resource map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":         "WH-" + uuid.NewString(),
		"event_type": eventType,
		"resource":   resource,
	})
	require.NoError(t, err)
	return payload
}

func TestHandleEventOrderApprovedClaims(t *testing.T) {
	res := &stubReservations{}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	puppyID := uuid.New()
	payload := eventPayload(t, EventOrderApproved, map[string]any{
		"id": "ORDER-1",
		"purchase_units": []map[string]any{{
			"custom_id": puppyID.String(),
			"amount":    map[string]any{"value": "300.00", "currency_code": "USD"},
		}},
		"payer": map[string]any{
			"email_address": "jane@example.com",
			"name":          map[string]any{"given_name": "Jane", "surname": "Doe"},
		},
	})

	require.NoError(t, svc.HandleEvent(context.Background(), payload))
	require.Len(t, res.claims, 1)
	require.Equal(t, puppyID, res.claims[0].PuppyID)
	require.Equal(t, "ORDER-1", res.claims[0].ExternalPaymentID)
	require.Equal(t, "jane@example.com", res.claims[0].CustomerEmail)
	require.Equal(t, "Jane Doe", res.claims[0].CustomerName)
	require.True(t, res.claims[0].AmountPaid.Equal(decimal.NewFromInt(300)))
	require.Empty(t, res.confirms)
}

func TestHandleEventCaptureCompletedConfirmsExisting(t *testing.T) {
	res := &stubReservations{}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	payload := eventPayload(t, EventCaptureCompleted, map[string]any{
		"id":        "CAPTURE-9",
		"custom_id": uuid.New().String(),
		"amount":    map[string]any{"value": "300.00", "currency_code": "USD"},
		"supplementary_data": map[string]any{
			"related_ids": map[string]any{"order_id": "ORDER-1"},
		},
	})

	require.NoError(t, svc.HandleEvent(context.Background(), payload))
	// The capture keys the reservation by its order id.
	require.Equal(t, []string{"ORDER-1"}, res.confirms)
	require.Empty(t, res.claims)
}

func TestHandleEventCaptureCompletedClaimsWhenUnseen(t *testing.T) {
	res := &stubReservations{confirmErr: pkgerrors.New(pkgerrors.CodeNotFound, "no reservation for payment")}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	puppyID := uuid.New()
	payload := eventPayload(t, EventCaptureCompleted, map[string]any{
		"id":        "CAPTURE-9",
		"custom_id": puppyID.String(),
		"amount":    map[string]any{"value": "300.00", "currency_code": "USD"},
		"payer":     map[string]any{"email_address": "jane@example.com"},
	})

	require.NoError(t, svc.HandleEvent(context.Background(), payload))
	require.Len(t, res.claims, 1)
	require.Equal(t, puppyID, res.claims[0].PuppyID)
	require.Equal(t, []string{"CAPTURE-9"}, res.confirms)
}

func TestHandleEventRefundCancels(t *testing.T) {
	res := &stubReservations{}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	payload := eventPayload(t, EventCaptureRefunded, map[string]any{"id": "CAPTURE-9"})
	require.NoError(t, svc.HandleEvent(context.Background(), payload))
	require.Equal(t, []string{"CAPTURE-9"}, res.cancels)
}

func TestHandleEventRefundWithoutReservationIsNoop(t *testing.T) {
	res := &stubReservations{cancelErr: pkgerrors.New(pkgerrors.CodeNotFound, "no reservation for payment")}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	payload := eventPayload(t, EventCaptureDenied, map[string]any{"id": "CAPTURE-404"})
	require.NoError(t, svc.HandleEvent(context.Background(), payload))
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	res := &stubReservations{}
	proc := &passthroughProcessor{}
	svc := newPayPalService(t, res, proc)

	payload := eventPayload(t, "BILLING.SUBSCRIPTION.CREATED", map[string]any{"id": "SUB-1"})
	require.NoError(t, svc.HandleEvent(context.Background(), payload))
	require.Len(t, proc.recorded, 1)
	require.False(t, proc.handled[0])
}

func TestHandleEventRejectsGarbage(t *testing.T) {
	svc := newPayPalService(t, &stubReservations{}, &passthroughProcessor{})

	err := svc.HandleEvent(context.Background(), []byte("not json"))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.HandleEvent(context.Background(), []byte(`{"event_type":"PAYMENT.CAPTURE.COMPLETED"}`))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestVerifierAcceptsConfirmedSignature(t *testing.T) {
	var gotWebhookID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotWebhookID = req.WebhookID
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client", user)
		require.Equal(t, "secret", pass)
		fmt.Fprint(w, `{"verification_status":"SUCCESS"}`)
	}))
	defer srv.Close()

	verifier, err := NewVerifier(config.PayPalConfig{WebhookID: "WH-CONFIG", ClientID: "client", Secret: "secret"})
	require.NoError(t, err)
	verifier.baseURL = srv.URL

	headers := TransmissionHeaders{TransmissionID: "t-1", TransmissionSig: "sig", TransmissionTime: "now"}
	require.NoError(t, verifier.Verify(context.Background(), headers, []byte(`{"id":"WH-1"}`)))
	require.Equal(t, "WH-CONFIG", gotWebhookID)
}

func TestVerifierRejectsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"verification_status":"FAILURE"}`)
	}))
	defer srv.Close()

	verifier, err := NewVerifier(config.PayPalConfig{WebhookID: "WH-CONFIG", ClientID: "client", Secret: "secret"})
	require.NoError(t, err)
	verifier.baseURL = srv.URL

	headers := TransmissionHeaders{TransmissionID: "t-1", TransmissionSig: "sig"}
	err = verifier.Verify(context.Background(), headers, []byte(`{}`))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestVerifierRequiresHeaders(t *testing.T) {
	verifier, err := NewVerifier(config.PayPalConfig{WebhookID: "WH-CONFIG", ClientID: "client", Secret: "secret"})
	require.NoError(t, err)

	err = verifier.Verify(context.Background(), TransmissionHeaders{}, []byte(`{}`))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}
