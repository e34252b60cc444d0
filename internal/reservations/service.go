package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenleafkennels/reservations-backend/internal/deposit"
	"github.com/goldenleafkennels/reservations-backend/pkg/db"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ClaimInput carries everything a verified payment event knows about the
// buyer and the puppy being claimed.
type ClaimInput struct {
	PuppyID           uuid.UUID
	Provider          enums.PaymentProvider
	ExternalPaymentID string
	WebhookEventID    *uuid.UUID
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	Channel           string
	AmountPaid        decimal.Decimal
}

// Service owns the reservation lifecycle: claim on payment, confirm on
// settlement, cancel on failure or refund, and expire stale holds.
type Service interface {
	Claim(ctx context.Context, input ClaimInput) (*models.Reservation, error)
	Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
	Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error)
	ExpirePending(ctx context.Context) (int64, error)
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Policy  deposit.Policy
	HoldTTL time.Duration
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	policy  deposit.Policy
	holdTTL time.Duration
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the reservations service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.HoldTTL <= 0 {
		params.HoldTTL = 72 * time.Hour
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		policy:  params.Policy,
		holdTTL: params.HoldTTL,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Claim atomically reserves the puppy and records the deposit-backed
// reservation. Exactly one of any number of racing claims for the same puppy
// succeeds; the rest fail with ALREADY_RESERVED, and a payment that already
// backs a reservation fails with DUPLICATE_PAYMENT.
func (s *service) Claim(ctx context.Context, input ClaimInput) (*models.Reservation, error) {
	if input.PuppyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "puppy id required")
	}
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	paymentID := strings.TrimSpace(input.ExternalPaymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external payment id required")
	}
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = email
	}

	var created *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if existing, err := repo.FindReservationByPayment(ctx, input.Provider, paymentID); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicatePayment, "payment already backs a reservation").
				WithDetails(map[string]any{"reservation_id": existing.ID.String()})
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup reservation by payment")
		}

		puppy, err := repo.FindPuppy(ctx, input.PuppyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeItemNotFound, "puppy not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load puppy")
		}
		if puppy.IsArchived {
			return pkgerrors.New(pkgerrors.CodeItemNotFound, "puppy not found")
		}

		amount, err := s.resolveAmount(puppy, input.AmountPaid)
		if err != nil {
			return err
		}

		claimed, err := repo.ClaimPuppy(ctx, puppy.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim puppy")
		}
		if !claimed {
			switch puppy.Status {
			case enums.PuppyStatusUpcoming:
				return pkgerrors.New(pkgerrors.CodeConflict, "puppy not open for reservations")
			default:
				// Reserved or sold at read time, or lost a race since.
				return pkgerrors.New(pkgerrors.CodeAlreadyReserved, "puppy already reserved")
			}
		}

		reservation := &models.Reservation{
			PuppyID:           puppy.ID,
			CustomerName:      name,
			CustomerEmail:     email,
			CustomerPhone:     strings.TrimSpace(input.CustomerPhone),
			Channel:           strings.TrimSpace(input.Channel),
			PaymentProvider:   input.Provider,
			ExternalPaymentID: paymentID,
			WebhookEventID:    input.WebhookEventID,
			Status:            enums.ReservationStatusPending,
			Amount:            amount,
			ExpiresAt:         s.now().Add(s.holdTTL),
		}

		created, err = repo.CreateReservation(ctx, reservation)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return mapReservationConflict(err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"reservation_id": created.ID.String(),
		"puppy_id":       created.PuppyID.String(),
		"amount":         created.Amount.String(),
	}), "reservation claimed")
	return created, nil
}

// Confirm promotes a pending reservation once the provider reports the
// payment settled. Confirming an already-confirmed reservation is a no-op.
func (s *service) Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	reservation, err := s.findByPayment(ctx, provider, externalPaymentID)
	if err != nil {
		return nil, err
	}

	switch reservation.Status {
	case enums.ReservationStatusConfirmed:
		return reservation, nil
	case enums.ReservationStatusExpired, enums.ReservationStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation no longer active").
			WithDetails(map[string]any{"status": reservation.Status.String()})
	}

	rows, err := s.repo.UpdateReservationStatus(ctx, reservation.ID, enums.ReservationStatusPending, enums.ReservationStatusConfirmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm reservation")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation changed state during confirm")
	}

	reservation.Status = enums.ReservationStatusConfirmed
	s.logg.Info(s.logg.WithField(ctx, "reservation_id", reservation.ID.String()), "reservation confirmed")
	return reservation, nil
}

// Cancel releases the puppy and closes the reservation after a failed or
// refunded payment. Cancelling an already-terminal reservation is a no-op.
func (s *service) Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	reservation, err := s.findByPayment(ctx, provider, externalPaymentID)
	if err != nil {
		return nil, err
	}
	if reservation.Status.IsTerminal() {
		return reservation, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.UpdateReservationStatus(ctx, reservation.ID, reservation.Status, enums.ReservationStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel reservation")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation changed state during cancel")
		}
		if err := repo.ReleasePuppy(ctx, reservation.PuppyID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release puppy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reservation.Status = enums.ReservationStatusCancelled
	s.logg.Info(s.logg.WithField(ctx, "reservation_id", reservation.ID.String()), "reservation cancelled")
	return reservation, nil
}

// ExpirePending sweeps pending reservations past their deadline: puppies go
// back to available and the reservations flip to expired, in one
// transaction. The sweep is idempotent; an empty pass affects zero rows.
func (s *service) ExpirePending(ctx context.Context) (int64, error) {
	var released, expired int64
	cutoff := s.now()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		released, err = repo.ReleaseExpiredPuppies(ctx, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release expired puppies")
		}
		expired, err = repo.ExpireOverdueReservations(ctx, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire overdue reservations")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 || released > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"expired_reservations": expired,
			"released_puppies":     released,
		}), "expiration sweep completed")
	}

	// Reserved puppies with no active reservation row are left alone; the
	// warning is the signal to investigate, not a repair.
	if orphans, orphanErr := s.repo.CountOrphanedReservedPuppies(ctx); orphanErr != nil {
		s.logg.Error(ctx, "count orphaned reserved puppies", orphanErr)
	} else if orphans > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "orphaned_puppies", orphans), "reserved puppies without an active reservation")
	}
	return expired, nil
}

func (s *service) findByPayment(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	if !provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	paymentID := strings.TrimSpace(externalPaymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external payment id required")
	}

	reservation, err := s.repo.FindReservationByPayment(ctx, provider, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no reservation for payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup reservation by payment")
	}
	return reservation, nil
}

// resolveAmount reconciles the amount the provider charged against the
// deposit policy for this puppy's price.
func (s *service) resolveAmount(puppy *models.Puppy, paid decimal.Decimal) (decimal.Decimal, error) {
	expected := deposit.Calculate(puppy.PriceUsd, s.policy)
	if paid.LessThanOrEqual(decimal.Zero) {
		return expected, nil
	}
	if puppy.PriceUsd.GreaterThan(decimal.Zero) && paid.GreaterThan(puppy.PriceUsd) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDepositExceedsPrice, "paid amount exceeds puppy price").
			WithDetails(map[string]any{"price": puppy.PriceUsd.String(), "paid": paid.String()})
	}
	if paid.LessThan(expected) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidDeposit, "paid amount below required deposit").
			WithDetails(map[string]any{"required": expected.String(), "paid": paid.String()})
	}
	return paid, nil
}

// mapReservationConflict discriminates the two unique constraints on the
// reservations table. Postgres reports constraint names, sqlite reports the
// column list, so both spellings are matched.
func mapReservationConflict(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "uq_reservations_provider_payment"),
		strings.Contains(msg, "external_payment_id"):
		return pkgerrors.Wrap(pkgerrors.CodeDuplicatePayment, err, "payment already backs a reservation")
	case strings.Contains(msg, "idx_one_active_reservation_per_puppy"),
		strings.Contains(msg, "reservations.puppy_id"):
		return pkgerrors.Wrap(pkgerrors.CodeAlreadyReserved, err, "puppy already reserved")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reservation conflict")
	}
}
