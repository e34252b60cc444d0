package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

// Puppy is the scarce, sell-once item reservations claim. At most one
// active reservation may reference a puppy while its status is reserved.
type Puppy struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name       string            `gorm:"column:name;not null"`
	Breed      string            `gorm:"column:breed"`
	Status     enums.PuppyStatus `gorm:"column:status;type:puppy_status_enum;not null;default:'upcoming'"`
	PriceUsd   decimal.Decimal   `gorm:"column:price_usd;type:numeric(10,2)"`
	IsArchived bool              `gorm:"column:is_archived;not null;default:false"`
	SoldAt     *time.Time        `gorm:"column:sold_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Puppy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
