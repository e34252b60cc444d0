package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/goldenleafkennels/reservations-backend/api/responses"
	paypalwebhook "github.com/goldenleafkennels/reservations-backend/internal/webhooks/paypal"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type PayPalWebhookService interface {
	HandleEvent(ctx context.Context, payload []byte) error
}

type paypalVerifier interface {
	Verify(ctx context.Context, headers paypalwebhook.TransmissionHeaders, payload []byte) error
}

// PayPalWebhook receives order and capture events for deposit payments.
func PayPalWebhook(svc PayPalWebhookService, verifier paypalVerifier, guard redeliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paypal verifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := verifier.Verify(ctx, paypalwebhook.FromRequest(r), payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var envelope struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "paypal event id missing"))
			return
		}

		alreadySeen, err := guard.CheckAndMark(ctx, envelope.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadySeen {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, payload); err != nil {
			_ = guard.Delete(ctx, envelope.ID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("paypal event %s processed", envelope.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
