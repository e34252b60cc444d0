package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/enums"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

// Alert describes a reconciliation failure worth a human's attention.
type Alert struct {
	Provider  enums.PaymentProvider
	EventType string
	EventID   string
	Message   string
	Err       error
}

// Notifier delivers an alert to one channel. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Service fans alerts out to the configured channels, throttled per
// (provider, event type) so a webhook storm produces one page, not hundreds.
type Service interface {
	Raise(ctx context.Context, alert Alert)
}

type service struct {
	notifiers []Notifier
	window    time.Duration
	logg      *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewService builds the alerting service.
func NewService(cfg config.AlertingConfig, logg *logger.Logger, notifiers ...Notifier) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = 15 * time.Minute
	}
	return &service{
		notifiers: notifiers,
		window:    cfg.ThrottleWindow,
		logg:      logg,
		now:       time.Now,
		lastSent:  make(map[string]time.Time),
	}, nil
}

// Raise delivers the alert on every channel in parallel unless the same
// (provider, event type) pair alerted within the throttle window. Delivery
// failures are logged and never propagated; alerting must not break the
// webhook path it reports on.
func (s *service) Raise(ctx context.Context, alert Alert) {
	if !s.shouldSend(alert) {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"provider":   alert.Provider.String(),
			"event_type": alert.EventType,
		}), "alert throttled")
		return
	}

	var wg sync.WaitGroup
	for _, notifier := range s.notifiers {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Notify(ctx, alert); err != nil {
				s.logg.Error(ctx, "alert delivery failed", err)
			}
		}(notifier)
	}
	wg.Wait()
}

func (s *service) shouldSend(alert Alert) bool {
	key := alert.Provider.String() + "|" + alert.EventType
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSent[key]; ok && now.Sub(last) < s.window {
		return false
	}
	s.lastSent[key] = now
	return true
}
