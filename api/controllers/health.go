package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/goldenleafkennels/reservations-backend/api/responses"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/db"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/redis"
)

const envHeader = "X-GoldenLeaf-Env"

const readinessTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := map[string]string{}
		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				failed["database"] = err.Error()
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				failed["redis"] = err.Error()
			}
		}

		if len(failed) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").WithDetails(failed)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
