package inquiries

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type limiter interface {
	Allow(ctx context.Context, email, originIP string) error
}

// CreateInquiryInput carries a prospective buyer's contact request.
type CreateInquiryInput struct {
	PuppyID  *uuid.UUID
	Name     string
	Email    string
	Phone    string
	Message  string
	OriginIP string
}

// Service handles inquiry intake.
type Service interface {
	Create(ctx context.Context, input CreateInquiryInput) (*models.Inquiry, error)
}

type service struct {
	repo    Repository
	limiter limiter
	logg    *logger.Logger
}

// NewService builds the inquiries service.
func NewService(repo Repository, lim limiter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inquiries repository required")
	}
	if lim == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, limiter: lim, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInquiryInput) (*models.Inquiry, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	if err := s.limiter.Allow(ctx, email, input.OriginIP); err != nil {
		return nil, err
	}

	inquiry := &models.Inquiry{
		PuppyID:  input.PuppyID,
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Message:  strings.TrimSpace(input.Message),
		OriginIP: strings.TrimSpace(input.OriginIP),
	}

	created, err := s.repo.Create(ctx, inquiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inquiry")
	}

	s.logg.Info(s.logg.WithField(ctx, "inquiry_id", created.ID.String()), "inquiry recorded")
	return created, nil
}
