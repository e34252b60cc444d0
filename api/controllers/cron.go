package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goldenleafkennels/reservations-backend/api/responses"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/security"
)

type reservationExpirer interface {
	ExpirePending(ctx context.Context) (int64, error)
}

// CronExpireReservations lets an external scheduler trigger the expiration
// sweep over HTTP. The bearer secret is compared in constant time; the sweep
// itself is idempotent, so overlapping triggers are harmless.
func CronExpireReservations(svc reservationExpirer, cfg config.CronConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}
		if cfg.Secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cron secret not configured"))
			return
		}

		token := bearerToken(r)
		if token == "" || !security.SecretEqual(token, cfg.Secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid cron credentials"))
			return
		}

		expired, err := svc.ExpirePending(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "expired", expired), "cron sweep triggered over http")
		}
		responses.WriteSuccess(w, map[string]any{
			"expired":   expired,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
