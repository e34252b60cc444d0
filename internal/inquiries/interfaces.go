package inquiries

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
)

// Repository defines persistence operations for inquiries. The count methods
// double as the rate limiter's data source.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inquiry *models.Inquiry) (*models.Inquiry, error)
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int64, error)
	CountByOriginSince(ctx context.Context, originIP string, since time.Time) (int64, error)
}
