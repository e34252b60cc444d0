package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

// WebhookEvent is an append-only ledger row recording every inbound
// provider event. Rows are never deleted; they are the idempotency guard
// and the audit trail for reconciliation.
type WebhookEvent struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Provider            enums.PaymentProvider `gorm:"column:provider;type:payment_provider_enum;not null;uniqueIndex:uq_webhook_events_provider_event"`
	EventID             string                `gorm:"column:event_id;not null;uniqueIndex:uq_webhook_events_provider_event"`
	IdempotencyKey      string                `gorm:"column:idempotency_key;not null;index:idx_webhook_events_idempotency_key"`
	EventType           string                `gorm:"column:event_type;not null"`
	Payload             json.RawMessage       `gorm:"column:payload;type:jsonb"`
	ProcessingStartedAt *time.Time            `gorm:"column:processing_started_at"`
	Processed           bool                  `gorm:"column:processed;not null;default:false"`
	ProcessedAt         *time.Time            `gorm:"column:processed_at"`
	ProcessingError     *string               `gorm:"column:processing_error"`
	ReservationID       *uuid.UUID            `gorm:"column:reservation_id;type:uuid"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
