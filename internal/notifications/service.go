package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aecvision/internal/config"
	"aecvision/internal/report"
)

const userAgent = "aecvision/dev"

// Service defines the notification surface used by the pipeline.
type Service interface {
	NotifyRunFinished(ctx context.Context, summary *report.Summary) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

// NotifyRunFinished publishes the outcome of a run. Successful runs are
// skipped unless on_success is set.
func (n *ntfyService) NotifyRunFinished(ctx context.Context, summary *report.Summary) error {
	if summary == nil {
		return nil
	}
	if summary.Outcome == report.OutcomeSuccess && !n.onSuccess {
		return nil
	}
	return n.send(ctx, runPayload(summary))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "aecvision - Test",
		message:  "Notification system test",
		tags:     []string{"aecvision", "test"},
		priority: "low",
	})
}

func runPayload(summary *report.Summary) payload {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s in %s", summary.Command, summary.Outcome, summary.Duration.Round(time.Second))
	for _, c := range summary.Counts {
		fmt.Fprintf(&b, "\n%s: %d", c.Name, c.Value)
	}
	if total := summary.IssueTotal(); total > 0 {
		fmt.Fprintf(&b, "\nissues: %d", total)
	}
	if summary.Error != "" {
		fmt.Fprintf(&b, "\nerror: %s", summary.Error)
	}

	data := payload{
		title:   fmt.Sprintf("aecvision - %s %s", summary.Command, summary.Outcome),
		message: b.String(),
		tags:    []string{"aecvision", summary.Command, summary.Outcome},
	}
	switch summary.Outcome {
	case report.OutcomeFailed:
		data.priority = "high"
	case report.OutcomePartial:
		data.priority = "default"
	default:
		data.priority = "low"
	}
	return data
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunFinished(context.Context, *report.Summary) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
