package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

// Repository defines persistence operations for the webhook event ledger.
// Rows are append-plus-update only; nothing ever deletes from this table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.WebhookEvent) (*models.WebhookEvent, error)
	FindByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error)
	UpdateByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string, updates map[string]any) (int64, error)
	UpdateByIdempotencyKey(ctx context.Context, key string, updates map[string]any) (int64, error)
}
