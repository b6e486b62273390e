package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stemsep/internal/config"
)

const userAgent = "stemsep/0.1"

// RunReport is the outcome of a finished run.
type RunReport struct {
	Organized int
	Failed    int
	Partial   int
	Processed int
	Duration  time.Duration
	Cancelled bool
}

// Service announces run milestones.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyRunFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
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
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Organized %d files", report.Organized)
	if report.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", report.Failed)
	}
	if report.Partial > 0 {
		fmt.Fprintf(&b, ", %d with missing stems", report.Partial)
	}
	fmt.Fprintf(&b, " in %s\n%d files processed in total", report.Duration.Round(time.Second), report.Processed)

	data := payload{
		title:   "stemsep - Run Complete",
		message: b.String(),
		tags:    []string{"stemsep", "completed"},
	}
	switch {
	case report.Cancelled:
		data.title = "stemsep - Run Interrupted"
		data.tags = []string{"stemsep", "interrupted"}
	case report.Failed > 0:
		data.tags = append(data.tags, "warning")
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error) error {
	message := "Run failed"
	if err != nil {
		message = "Run failed: " + err.Error()
	}
	return n.send(ctx, payload{
		title:    "stemsep - Error",
		message:  message,
		tags:     []string{"stemsep", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "stemsep - Test",
		message:  "Notification test",
		tags:     []string{"stemsep", "test"},
		priority: "low",
	})
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

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyRunFailed(context.Context, error) error        { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
