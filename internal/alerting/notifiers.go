package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goldenleafkennels/reservations-backend/pkg/config"
	"github.com/goldenleafkennels/reservations-backend/pkg/logger"
)

// LogNotifier writes alerts to the structured log. It is always wired so an
// alert leaves a trace even when no external channel is configured.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds the log-backed channel.
func NewLogNotifier(logg *logger.Logger) (*LogNotifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogNotifier{logg: logg}, nil
}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	fields := map[string]any{
		"provider":   alert.Provider.String(),
		"event_type": alert.EventType,
		"event_id":   alert.EventID,
	}
	n.logg.Error(n.logg.WithFields(ctx, fields), "reconciliation alert: "+alert.Message, alert.Err)
	return nil
}

// SlackNotifier posts alerts to an incoming-webhook URL.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier builds the Slack channel. An empty URL is a configuration
// error; callers should skip wiring the channel instead.
func NewSlackNotifier(cfg config.AlertingConfig) (*SlackNotifier, error) {
	if cfg.SlackWebhookURL == "" {
		return nil, fmt.Errorf("slack webhook url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SlackNotifier{
		webhookURL: cfg.SlackWebhookURL,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type slackPayload struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	text := fmt.Sprintf("[%s] %s: %s", alert.Provider, alert.EventType, alert.Message)
	if alert.Err != nil {
		text += fmt.Sprintf(" (%v)", alert.Err)
	}
	if alert.EventID != "" {
		text += fmt.Sprintf(" event=%s", alert.EventID)
	}

	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
