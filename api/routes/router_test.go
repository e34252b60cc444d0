package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/goldenleafkennels/reservations-backend/internal/inquiries"
	"github.com/goldenleafkennels/reservations-backend/internal/reservations"
	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/db/models"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubInquiriesService struct{}

func (stubInquiriesService) Create(ctx context.Context, input inquiries.CreateInquiryInput) (*models.Inquiry, error) {
	return &models.Inquiry{ID: uuid.New()}, nil
}

type stubReservationsService struct{}

func (stubReservationsService) Claim(ctx context.Context, input reservations.ClaimInput) (*models.Reservation, error) {
	return nil, nil
}

func (stubReservationsService) Confirm(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	return nil, nil
}

func (stubReservationsService) Cancel(ctx context.Context, provider enums.PaymentProvider, externalPaymentID string) (*models.Reservation, error) {
	return nil, nil
}

func (stubReservationsService) ExpirePending(ctx context.Context) (int64, error) {
	return 0, nil
}

func testRouter() http.Handler {
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		Cron: config.CronConfig{Secret: "sweep-secret"},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubInquiriesService{},
		stubReservationsService{},
		nil,
		nil,
		nil,
		nil,
		nil,
	)
}

func TestRouterHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterHealthReady(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterCreateInquiry(t *testing.T) {
	body := strings.NewReader(`{"name":"Jane","email":"jane@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", body)
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterCronRequiresAuth(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodGet} {
		req := httptest.NewRequest(method, "/api/v1/cron/expire-reservations", nil)
		resp := httptest.NewRecorder()
		testRouter().ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", method, resp.Code)
		}
	}
}

func TestRouterCronSweepWithSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/expire-reservations", nil)
	req.Header.Set("Authorization", "Bearer sweep-secret")
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}
