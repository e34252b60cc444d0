package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goldenleafkennels/reservations-backend/internal/alerting"
	"github.com/goldenleafkennels/reservations-backend/internal/ledger"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
	"github.com/goldenleafkennels/reservations-backend/pkg/metrics"
)

type ledgerService interface {
	Record(ctx context.Context, input ledger.RecordInput) (*models.WebhookEvent, bool, error)
	MarkProcessing(ctx context.Context, ref ledger.EventRef) error
	MarkProcessed(ctx context.Context, ref ledger.EventRef, reservationID *uuid.UUID) error
	MarkFailed(ctx context.Context, ref ledger.EventRef, cause error)
}

type alerter interface {
	Raise(ctx context.Context, alert alerting.Alert)
}

// HandlerFunc does the reservation work for one event and returns the
// reservation it touched, if any. A nil handler marks the event processed
// without doing anything; ignored event types use that.
type HandlerFunc func(ctx context.Context) (*uuid.UUID, error)

// Processor runs the ledger bookkeeping around provider-specific handlers:
// record on receipt, short-circuit redeliveries, mark processing, run the
// handler, and finalize or fail the row. Stripe and PayPal services share it.
type Processor struct {
	ledger  ledgerService
	alerts  alerter
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
}

// ProcessorParams bundles the processor dependencies. Metrics may be nil.
type ProcessorParams struct {
	Ledger  ledgerService
	Alerts  alerter
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
}

// NewProcessor builds the shared webhook processor.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alerting service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Processor{
		ledger:  params.Ledger,
		alerts:  params.Alerts,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Process runs one event through the ledger. Returning nil means the
// provider should receive a 2xx; the provider retries anything else.
func (p *Processor) Process(ctx context.Context, input ledger.RecordInput, handle HandlerFunc) error {
	start := time.Now()
	provider := input.Provider.String()
	defer func() {
		p.metrics.ObserveDuration(provider, time.Since(start))
	}()

	ctx = p.logg.WithProvider(ctx, provider)
	ctx = p.logg.WithEventID(ctx, input.EventID)

	event, duplicate, err := p.ledger.Record(ctx, input)
	if err != nil {
		p.metrics.IncFailed(provider, input.EventType)
		return err
	}

	ref := ledger.EventRef{
		Provider:       event.Provider,
		EventID:        event.EventID,
		IdempotencyKey: event.IdempotencyKey,
	}

	if duplicate {
		p.metrics.IncDuplicate(provider)
		if event.Processed {
			p.logg.Info(ctx, "redelivered event already processed")
			return nil
		}
		// First attempt never finished; the redelivery is the retry.
		p.logg.Info(ctx, "retrying unfinished event on redelivery")
	}

	if handle == nil {
		if err := p.ledger.MarkProcessed(ctx, ref, nil); err != nil {
			return err
		}
		p.logg.Info(ctx, "event type ignored")
		return nil
	}

	if err := p.ledger.MarkProcessing(ctx, ref); err != nil {
		p.metrics.IncFailed(provider, input.EventType)
		return err
	}

	reservationID, err := handle(ctx)
	if err != nil {
		// The payment already backs a reservation: the work this event asked
		// for is done, so acknowledge instead of forcing provider retries.
		if pkgerrors.HasCode(err, pkgerrors.CodeDuplicatePayment) {
			p.logg.Info(ctx, "payment already reconciled")
			return p.ledger.MarkProcessed(ctx, ref, nil)
		}

		p.ledger.MarkFailed(ctx, ref, err)
		p.metrics.IncFailed(provider, input.EventType)
		p.alerts.Raise(ctx, alerting.Alert{
			Provider:  input.Provider,
			EventType: input.EventType,
			EventID:   input.EventID,
			Message:   "webhook processing failed",
			Err:       err,
		})
		return err
	}

	if err := p.ledger.MarkProcessed(ctx, ref, reservationID); err != nil {
		p.metrics.IncFailed(provider, input.EventType)
		return err
	}

	p.metrics.IncProcessed(provider, input.EventType)
	return nil
}
