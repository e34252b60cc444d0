package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *repository) FindByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) UpdateByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) UpdateByIdempotencyKey(ctx context.Context, key string, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("idempotency_key = ?", key).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
