package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPuppy(ctx context.Context, id uuid.UUID) (*models.Puppy, error) {
	var puppy models.Puppy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&puppy).Error
	if err != nil {
		return nil, err
	}
	return &puppy, nil
}

// ClaimPuppy flips an available puppy to reserved. The conditional update is
// the concurrency gate: exactly one of any number of racing claims sees a
// row affected.
func (r *repository) ClaimPuppy(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Puppy{}).
		Where("id = ? AND status = ?", id, enums.PuppyStatusAvailable).
		Update("status", enums.PuppyStatusReserved)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleasePuppy(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Puppy{}).
		Where("id = ? AND status = ?", id, enums.PuppyStatusReserved).
		Update("status", enums.PuppyStatusAvailable).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

func (r *repository) FindReservationByPayment(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("payment_provider = ? AND external_payment_id = ?", provider, externalPaymentID).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindActiveReservationByPuppy(ctx context.Context, puppyID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("puppy_id = ? AND status IN ?", puppyID, enums.ActiveReservationStatuses).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ReleaseExpiredPuppies reopens puppies whose only active reservation is a
// pending one past its deadline. The NOT IN guard keeps puppies with a
// newer confirmed or unexpired hold untouched.
func (r *repository) ReleaseExpiredPuppies(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE puppies
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ?
		  AND id IN (
			SELECT puppy_id FROM reservations
			WHERE status = ? AND expires_at <= ?
		  )
		  AND id NOT IN (
			SELECT puppy_id FROM reservations
			WHERE (status = ?)
			   OR (status = ? AND expires_at > ?)
		  )
	`,
		enums.PuppyStatusAvailable,
		enums.PuppyStatusReserved,
		enums.ReservationStatusPending, cutoff,
		enums.ReservationStatusConfirmed,
		enums.ReservationStatusPending, cutoff,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountOrphanedReservedPuppies counts puppies stuck in reserved with no
// active reservation row. The sweep never touches them; they indicate a past
// write that half-finished and need a human look.
func (r *repository) CountOrphanedReservedPuppies(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Puppy{}).
		Where("status = ?", enums.PuppyStatusReserved).
		Where("id NOT IN (SELECT puppy_id FROM reservations WHERE status IN ?)", enums.ActiveReservationStatuses).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ExpireOverdueReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status = ? AND expires_at <= ?", enums.ReservationStatusPending, cutoff).
		Update("status", enums.ReservationStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
