package ratelimit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

type stubCounter struct {
	emailCount  int64
	emailErr    error
	originCount int64
	originErr   error

	emailCalls  int
	originCalls int
}

func (s *stubCounter) CountByEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	s.emailCalls++
	return s.emailCount, s.emailErr
}

func (s *stubCounter) CountByOriginSince(ctx context.Context, originIP string, since time.Time) (int64, error) {
	s.originCalls++
	return s.originCount, s.originErr
}

type stubWindow struct {
	allowed bool
	count   int64
	err     error
	calls   int
	scope   string
}

func (s *stubWindow) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.calls++
	s.scope = scope
	return s.allowed, s.count, s.err
}

func newTestService(t *testing.T, counter Counter) Service {
	t.Helper()
	return newTestServiceWithWindow(t, counter, nil)
}

func newTestServiceWithWindow(t *testing.T, counter Counter, window WindowAllower) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(counter, window, config.RateLimitConfig{
		Window:     15 * time.Minute,
		EmailLimit: 3,
		IPLimit:    5,
	}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAllowUnderLimits(t *testing.T) {
	counter := &stubCounter{emailCount: 2, originCount: 4}
	svc := newTestService(t, counter)

	if err := svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9"); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if counter.emailCalls != 1 || counter.originCalls != 1 {
		t.Fatalf("expected both counts checked, got email=%d origin=%d", counter.emailCalls, counter.originCalls)
	}
}

func TestAllowEmailLimitCheckedFirst(t *testing.T) {
	counter := &stubCounter{emailCount: 3, originCount: 0}
	svc := newTestService(t, counter)

	err := svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9")
	if !pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["scope"] != "email" {
		t.Fatalf("expected email scope in details, got %#v", details)
	}
	if counter.originCalls != 0 {
		t.Fatalf("origin count should not run once email limit trips")
	}
}

func TestAllowOriginLimit(t *testing.T) {
	counter := &stubCounter{emailCount: 0, originCount: 5}
	svc := newTestService(t, counter)

	err := svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9")
	if !pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	if details["scope"] != "ip" {
		t.Fatalf("expected ip scope, got %#v", details)
	}
}

func TestAllowSkipsOriginWhenUnknown(t *testing.T) {
	counter := &stubCounter{emailCount: 0, originErr: errors.New("should not be called")}
	svc := newTestService(t, counter)

	if err := svc.Allow(context.Background(), "buyer@example.com", "  "); err != nil {
		t.Fatalf("expected allow without origin check, got %v", err)
	}
	if counter.originCalls != 0 {
		t.Fatalf("origin count ran despite empty address")
	}
}

func TestAllowRequiresEmail(t *testing.T) {
	svc := newTestService(t, &stubCounter{})
	err := svc.Allow(context.Background(), "   ", "203.0.113.9")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAllowFastPathShedsFloodBeforeCounts(t *testing.T) {
	counter := &stubCounter{}
	window := &stubWindow{allowed: false, count: 21}
	svc := newTestServiceWithWindow(t, counter, window)

	err := svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9")
	if !pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	if details["scope"] != "ip" {
		t.Fatalf("expected ip scope, got %#v", details)
	}
	if window.scope != "inquiry:203.0.113.9" {
		t.Fatalf("unexpected window scope %q", window.scope)
	}
	if counter.emailCalls != 0 || counter.originCalls != 0 {
		t.Fatalf("row counts ran despite shed flood: email=%d origin=%d", counter.emailCalls, counter.originCalls)
	}
}

func TestAllowFastPathFailureFallsBackToCounts(t *testing.T) {
	counter := &stubCounter{emailCount: 0, originCount: 0}
	window := &stubWindow{err: errors.New("redis down")}
	svc := newTestServiceWithWindow(t, counter, window)

	if err := svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9"); err != nil {
		t.Fatalf("expected allow via row counts, got %v", err)
	}
	if window.calls != 1 {
		t.Fatalf("expected one window call, got %d", window.calls)
	}
	if counter.emailCalls != 1 || counter.originCalls != 1 {
		t.Fatalf("row counts should still decide: email=%d origin=%d", counter.emailCalls, counter.originCalls)
	}
}

func TestAllowFastPathSkippedWithoutAddress(t *testing.T) {
	window := &stubWindow{allowed: false}
	svc := newTestServiceWithWindow(t, &stubCounter{}, window)

	if err := svc.Allow(context.Background(), "buyer@example.com", ""); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if window.calls != 0 {
		t.Fatalf("window ran without an address")
	}
}

func TestAllowPropagatesCountErrors(t *testing.T) {
	counter := &stubCounter{emailErr: errors.New("db down")}
	svc := newTestService(t, counter)

	err := svc.Allow(context.Background(), "buyer@example.com", "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	counter = &stubCounter{originErr: errors.New("db down")}
	svc = newTestService(t, counter)
	err = svc.Allow(context.Background(), "buyer@example.com", "203.0.113.9")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
