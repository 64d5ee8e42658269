package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fileslink/internal/config"
)

const userAgent = "fileslink/1.0"

// Event names a notification kind.
type Event string

const (
	EventIngestFailed   Event = "ingest_failed"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		muted: map[Event]bool{
			EventIngestFailed:   !cfg.Notifications.Failures,
			EventQueueCompleted: !cfg.Notifications.QueueDrained,
		},
	}
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
	muted    map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n.muted[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventIngestFailed:
		summary := str(data, "summary")
		if summary == "" {
			summary = "unknown job"
		}
		message := fmt.Sprintf("❌ Ingestion failed: %s", summary)
		if errText := str(data, "error"); errText != "" {
			message += "\n" + errText
		}
		return payload{
			title:    "fileslink - Upload Failed",
			message:  message,
			tags:     []string{"fileslink", "ingest", "error"},
			priority: "high",
		}, true
	case EventQueueCompleted:
		processed := num(data, "processed")
		failed := num(data, "failed")
		duration := dur(data, "duration")
		if failed == 0 {
			return payload{
				title:   "fileslink - Queue Complete",
				message: fmt.Sprintf("Queue drained: %d files stored in %s", processed, duration),
				tags:    []string{"fileslink", "queue", "completed"},
			}, true
		}
		return payload{
			title:   "fileslink - Queue Complete (with errors)",
			message: fmt.Sprintf("Queue drained: %d stored, %d failed attempts in %s", processed, failed, duration),
			tags:    []string{"fileslink", "queue", "completed"},
		}, true
	case EventTest:
		return payload{
			title:    "fileslink - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"fileslink", "test"},
			priority: "low",
		}, true
	}
	return payload{}, false
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

func str(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

func num(data Payload, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func dur(data Payload, key string) string {
	d, _ := data[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
