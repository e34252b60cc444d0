package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	pkgerrors "github.com/goldenleafkennels/reservations-backend/pkg/errors"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

// Counter exposes the row counts the limiter decides on. The inquiries
// repository satisfies it directly.
type Counter interface {
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int64, error)
	CountByOriginSince(ctx context.Context, originIP string, since time.Time) (int64, error)
}

// WindowAllower is the Redis fixed-window surface the per-address fast path
// runs on. The pkg/redis client satisfies it.
type WindowAllower interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// The Redis window counts attempts rather than stored rows, so the fast path
// runs with this much headroom over the row limit and only sheds outright
// floods. The row counts below stay authoritative.
const fastPathFactor = 4

// Service decides whether a new inquiry may be accepted.
type Service interface {
	Allow(ctx context.Context, email, originIP string) error
}

type service struct {
	counter Counter
	window  WindowAllower
	cfg     config.RateLimitConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the inquiry rate limiter. A nil window disables the
// Redis fast path and leaves only the row counts. Zero limits fall back to
// the config defaults rather than disabling the check.
func NewService(counter Counter, window WindowAllower, cfg config.RateLimitConfig, logg *logger.Logger) (Service, error) {
	if counter == nil {
		return nil, fmt.Errorf("rate limit counter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.EmailLimit <= 0 {
		cfg.EmailLimit = 3
	}
	if cfg.IPLimit <= 0 {
		cfg.IPLimit = 5
	}
	return &service{counter: counter, window: window, cfg: cfg, logg: logg, now: time.Now}, nil
}

// Allow checks the email quota before the origin quota; the origin check is
// skipped entirely when no address is known. Count failures are returned to
// the caller so the request fails instead of slipping past the limiter.
func (s *service) Allow(ctx context.Context, email, originIP string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	originIP = strings.TrimSpace(originIP)

	if err := s.allowFastPath(ctx, originIP); err != nil {
		return err
	}

	since := s.now().Add(-s.cfg.Window)

	emailCount, err := s.counter.CountByEmailSince(ctx, email, since)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inquiries by email")
	}
	if emailCount >= int64(s.cfg.EmailLimit) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"scope": "email",
			"count": emailCount,
			"limit": s.cfg.EmailLimit,
		}), "inquiry rate limit hit")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many inquiries for this email").
			WithDetails(map[string]any{
				"scope":          "email",
				"window_seconds": int(s.cfg.Window.Seconds()),
			})
	}

	if originIP == "" {
		return nil
	}

	originCount, err := s.counter.CountByOriginSince(ctx, originIP, since)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inquiries by origin")
	}
	if originCount >= int64(s.cfg.IPLimit) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"scope": "ip",
			"count": originCount,
			"limit": s.cfg.IPLimit,
		}), "inquiry rate limit hit")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many inquiries from this address").
			WithDetails(map[string]any{
				"scope":          "ip",
				"window_seconds": int(s.cfg.Window.Seconds()),
			})
	}

	return nil
}

// allowFastPath sheds per-address floods in Redis before any row count runs.
// A Redis failure only drops the pre-filter; the row counts still decide.
func (s *service) allowFastPath(ctx context.Context, originIP string) error {
	if s.window == nil || originIP == "" {
		return nil
	}

	allowed, count, err := s.window.FixedWindowAllow(ctx, "inquiry:"+originIP, int64(s.cfg.IPLimit)*fastPathFactor, s.cfg.Window)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "origin_ip", originIP), "inquiry fast-path window unavailable")
		return nil
	}
	if allowed {
		return nil
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"scope": "ip",
		"count": count,
		"limit": int64(s.cfg.IPLimit) * fastPathFactor,
	}), "inquiry flood shed before row counts")
	return pkgerrors.New(pkgerrors.CodeRateLimit, "too many inquiries from this address").
		WithDetails(map[string]any{
			"scope":          "ip",
			"window_seconds": int(s.cfg.Window.Seconds()),
		})
}
