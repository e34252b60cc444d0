package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/goldenleafkennels/reservations-backend/api/responses"
	"github.com/goldenleafkennels/reservations-backend/api/validators"
	"github.com/goldenleafkennels/reservations-backend/internal/inquiries"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type createInquiryRequest struct {
	PuppyID string `json:"puppy_id" validate:"omitempty,uuid"`
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Message string `json:"message" validate:"omitempty,max=4000"`
}

// InquiryCreate accepts a prospective buyer's contact request. The service
// enforces the per-email and per-origin rate limits.
func InquiryCreate(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inquiries service unavailable"))
			return
		}

		var req createInquiryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := inquiries.CreateInquiryInput{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Message:  req.Message,
			OriginIP: clientIP(r),
		}
		if req.PuppyID != "" {
			puppyID, err := uuid.Parse(req.PuppyID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid puppy id"))
				return
			}
			input.PuppyID = &puppyID
		}

		inquiry, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":         inquiry.ID,
			"created_at": inquiry.CreatedAt,
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
