package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goldenleafkennels/reservations-backend/internal/inquiries"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
)

type testInquiriesService struct {
	createFn func(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error)
}

func (s *testInquiriesService) Create(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.Inquiry{ID: uuid.New(), CreatedAt: time.Now()}, nil
}

func TestInquiryCreateSuccess(t *testing.T) {
	var captured inquiries.CreateInquiryInput
	svc := &testInquiriesService{
		createFn: func(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error) {
			captured = input
			return &models.Inquiry{ID: uuid.New(), CreatedAt: time.Now()}, nil
		},
	}

	body := `{"name":"Jane Doe","email":"jane@example.com","message":"Is Biscuit still available?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp := httptest.NewRecorder()
	InquiryCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Email != "jane@example.com" {
		t.Fatalf("unexpected email %q", captured.Email)
	}
	if captured.OriginIP != "203.0.113.7" {
		t.Fatalf("unexpected origin %q", captured.OriginIP)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["id"] == "" {
		t.Fatal("response missing inquiry id")
	}
}

func TestInquiryCreateWithPuppyID(t *testing.T) {
	puppyID := uuid.New()
	var captured inquiries.CreateInquiryInput
	svc := &testInquiriesService{
		createFn: func(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error) {
			captured = input
			return &models.Inquiry{ID: uuid.New(), CreatedAt: time.Now()}, nil
		},
	}

	body := `{"puppy_id":"` + puppyID.String() + `","name":"Jane","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	resp := httptest.NewRecorder()
	InquiryCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.PuppyID == nil || *captured.PuppyID != puppyID {
		t.Fatalf("puppy id not propagated: %v", captured.PuppyID)
	}
}

func TestInquiryCreateInvalidEmail(t *testing.T) {
	body := `{"name":"Jane","email":"not-an-email"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	resp := httptest.NewRecorder()
	InquiryCreate(&testInquiriesService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInquiryCreateRateLimited(t *testing.T) {
	svc := &testInquiriesService{
		createFn: func(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many inquiries from this email")
		},
	}

	body := `{"name":"Jane","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	resp := httptest.NewRecorder()
	InquiryCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "too many inquiries from this email" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestInquiryCreateMalformedPuppyID(t *testing.T) {
	body := `{"puppy_id":"nope","name":"Jane","email":"jane@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	resp := httptest.NewRecorder()
	InquiryCreate(&testInquiriesService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
