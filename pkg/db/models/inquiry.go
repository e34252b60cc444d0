package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inquiry records a prospective buyer reaching out about a puppy. The rate
// limiter counts rows here by email and origin address.
type Inquiry struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PuppyID   *uuid.UUID `gorm:"column:puppy_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Email     string     `gorm:"column:email;not null;index:idx_inquiries_email_created"`
	Phone     string     `gorm:"column:phone"`
	Message   string     `gorm:"column:message"`
	OriginIP  string     `gorm:"column:origin_ip;index:idx_inquiries_origin_created"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index:idx_inquiries_email_created;index:idx_inquiries_origin_created"`
}

func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
