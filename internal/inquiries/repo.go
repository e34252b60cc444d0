package inquiries

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inquiries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, inquiry *models.Inquiry) (*models.Inquiry, error) {
	if err := r.db.WithContext(ctx).Create(inquiry).Error; err != nil {
		return nil, err
	}
	return inquiry, nil
}

func (r *repository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("email = ? AND created_at >= ?", email, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountByOriginSince(ctx context.Context, originIP string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("origin_ip = ? AND created_at >= ?", originIP, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
