package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

// Reservation holds a deposit-backed claim on a puppy. A given provider
// payment backs at most one reservation, and the partial unique index
// idx_one_active_reservation_per_puppy keeps concurrent claims honest at
// the database layer.
type Reservation struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PuppyID           uuid.UUID               `gorm:"column:puppy_id;type:uuid;not null"`
	CustomerName      string                  `gorm:"column:customer_name;not null"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	CustomerPhone     string                  `gorm:"column:customer_phone"`
	Channel           string                  `gorm:"column:channel"`
	Notes             *string                 `gorm:"column:notes"`
	PaymentProvider   enums.PaymentProvider   `gorm:"column:payment_provider;type:payment_provider_enum;not null;uniqueIndex:uq_reservations_provider_payment"`
	ExternalPaymentID string                  `gorm:"column:external_payment_id;not null;uniqueIndex:uq_reservations_provider_payment"`
	WebhookEventID    *uuid.UUID              `gorm:"column:webhook_event_id;type:uuid"`
	Status            enums.ReservationStatus `gorm:"column:status;type:reservation_status_enum;not null;default:'pending'"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(10,2);not null"`
	ExpiresAt         time.Time               `gorm:"column:expires_at;not null"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
