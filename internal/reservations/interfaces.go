package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

// Repository defines persistence operations for puppies and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindPuppy(ctx context.Context, id uuid.UUID) (*models.Puppy, error)
	ClaimPuppy(ctx context.Context, id uuid.UUID) (bool, error)
	ReleasePuppy(ctx context.Context, id uuid.UUID) error

	CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error)
	FindReservationByPayment(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
	FindActiveReservationByPuppy(ctx context.Context, puppyID uuid.UUID) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (int64, error)

	ReleaseExpiredPuppies(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireOverdueReservations(ctx context.Context, cutoff time.Time) (int64, error)
	CountOrphanedReservedPuppies(ctx context.Context) (int64, error)
}
