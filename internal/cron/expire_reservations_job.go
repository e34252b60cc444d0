package cron

import (
	"context"
	"fmt"

	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/metrics"
)

// ExpireReservationsJobName identifies the sweep in logs and metrics.
const ExpireReservationsJobName = "expire_reservations"

type expirer interface {
	ExpirePending(ctx context.Context) (int64, error)
}

// ExpireReservationsJob sweeps pending reservations whose hold deadline
// passed, returning their puppies to the storefront.
type ExpireReservationsJob struct {
	reservations expirer
	metrics      *metrics.CronJobMetrics
	logg         *logger.Logger
}

// NewExpireReservationsJob builds the sweep job. Metrics may be nil.
func NewExpireReservationsJob(reservations expirer, m *metrics.CronJobMetrics, logg *logger.Logger) (*ExpireReservationsJob, error) {
	if reservations == nil {
		return nil, fmt.Errorf("reservations service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ExpireReservationsJob{
		reservations: reservations,
		metrics:      m,
		logg:         logg,
	}, nil
}

func (j *ExpireReservationsJob) Name() string {
	return ExpireReservationsJobName
}

func (j *ExpireReservationsJob) Run(ctx context.Context) error {
	expired, err := j.reservations.ExpirePending(ctx)
	if err != nil {
		return fmt.Errorf("expire pending reservations: %w", err)
	}
	j.metrics.AddExpired(expired)
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "expired stale reservations")
	}
	return nil
}
