package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

// EventRef identifies a ledger row. Lookups try provider+event id first and
// fall back to the idempotency key, so a row stays reachable even when a
// provider redelivers under a fresh event id.
type EventRef struct {
	Provider       enums.PaymentProvider
	EventID        string
	IdempotencyKey string
}

// RecordInput captures an inbound provider event before any processing.
type RecordInput struct {
	Provider       enums.PaymentProvider
	EventID        string
	IdempotencyKey string
	EventType      string
	Payload        json.RawMessage
}

// Service is the webhook event ledger. Every inbound event is recorded on
// receipt; processing state transitions are tracked on the same row.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.WebhookEvent, bool, error)
	MarkProcessing(ctx context.Context, ref EventRef) error
	MarkProcessed(ctx context.Context, ref EventRef, reservationID *uuid.UUID) error
	MarkFailed(ctx context.Context, ref EventRef, cause error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the ledger service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

// Record inserts the event row. The second return value reports a duplicate
// delivery: the unique (provider, event_id) constraint decides, and the
// already-stored row is returned instead of a new one.
func (s *service) Record(ctx context.Context, input RecordInput) (*models.WebhookEvent, bool, error) {
	if !input.Provider.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = fmt.Sprintf("%s:%s", input.Provider, eventID)
	}

	event := &models.WebhookEvent{
		Provider:       input.Provider,
		EventID:        eventID,
		IdempotencyKey: key,
		EventType:      strings.TrimSpace(input.EventType),
		Payload:        input.Payload,
	}

	created, err := s.repo.Create(ctx, event)
	if err == nil {
		return created, false, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
	}

	existing, findErr := s.repo.FindByProviderEvent(ctx, input.Provider, eventID)
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			// Insert lost to the constraint but the row is gone: the ledger
			// cannot answer whether this event was seen.
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeLedgerInconsistent, err, "duplicate event row missing")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load duplicate webhook event")
	}

	s.logg.Info(s.logg.WithEventID(ctx, eventID), "duplicate webhook event received")
	return existing, true, nil
}

// MarkProcessing stamps the row before any reservation work begins. An
// unmatched row is fatal: processing must never run against an event the
// ledger does not know about.
func (s *service) MarkProcessing(ctx context.Context, ref EventRef) error {
	now := s.now()
	rows, err := s.update(ctx, ref, map[string]any{
		"processing_started_at": &now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook event processing")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeLedgerInconsistent, "no ledger row matched event").
			WithDetails(map[string]any{"event_id": ref.EventID})
	}
	return nil
}

// MarkProcessed finalizes the row, optionally linking the reservation the
// event produced. An unmatched row is fatal for the same reason as
// MarkProcessing.
func (s *service) MarkProcessed(ctx context.Context, ref EventRef, reservationID *uuid.UUID) error {
	now := s.now()
	updates := map[string]any{
		"processed":        true,
		"processed_at":     &now,
		"processing_error": nil,
	}
	if reservationID != nil {
		updates["reservation_id"] = *reservationID
	}
	rows, err := s.update(ctx, ref, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook event processed")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeLedgerInconsistent, "no ledger row matched event").
			WithDetails(map[string]any{"event_id": ref.EventID})
	}
	return nil
}

// MarkFailed records the processing error on the row and clears the
// processed flag so a row never reads as both done and broken. Failures here
// are logged and swallowed: the caller is already on an error path and the
// original failure matters more than the bookkeeping.
func (s *service) MarkFailed(ctx context.Context, ref EventRef, cause error) {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	rows, err := s.update(ctx, ref, map[string]any{
		"processed":        false,
		"processing_error": msg,
	})
	if err != nil {
		s.logg.Error(s.logg.WithEventID(ctx, ref.EventID), "record webhook failure", err)
		return
	}
	if rows == 0 {
		s.logg.Warn(s.logg.WithEventID(ctx, ref.EventID), "webhook failure did not match a ledger row")
	}
}

func (s *service) update(ctx context.Context, ref EventRef, updates map[string]any) (int64, error) {
	if ref.EventID != "" {
		rows, err := s.repo.UpdateByProviderEvent(ctx, ref.Provider, ref.EventID, updates)
		if err != nil {
			return 0, err
		}
		if rows > 0 {
			return rows, nil
		}
	}
	if ref.IdempotencyKey == "" {
		return 0, nil
	}
	return s.repo.UpdateByIdempotencyKey(ctx, ref.IdempotencyKey, updates)
}
