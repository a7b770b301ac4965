package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"shrink/internal/config"
)

const userAgent = "shrink/0.1.0"

// Event enumerates the notifications shrink can send.
type Event string

const (
	EventJobCompleted          Event = "job_completed"
	EventJobFailed             Event = "job_failed"
	EventBatchCompleted        Event = "batch_completed"
	EventDependenciesInstalled Event = "dependencies_installed"
	EventTestNotification      Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// HTTPDoer describes the HTTP client used to reach ntfy.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
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
	return NewNtfyService(topic, &http.Client{Timeout: timeout}, cfg.Notifications)
}

// NewNtfyService publishes to endpoint with client, honouring the per-event
// switches in toggles.
func NewNtfyService(endpoint string, client HTTPDoer, toggles config.Notifications) Service {
	return &ntfyService{
		endpoint: endpoint,
		client:   client,
		enabled: map[Event]bool{
			EventJobCompleted:          toggles.JobCompleted,
			EventJobFailed:             toggles.JobFailed,
			EventBatchCompleted:        toggles.JobCompleted || toggles.JobFailed,
			EventDependenciesInstalled: toggles.Dependencies,
			EventTestNotification:      true,
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
	client   HTTPDoer
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
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
	case EventJobCompleted:
		name := fileName(data)
		in, out := int64Value(data, "input_bytes"), int64Value(data, "output_bytes")
		message := fmt.Sprintf("✅ Compressed %s: %s → %s", name, humanize.Bytes(uint64(max(in, 0))), humanize.Bytes(uint64(max(out, 0))))
		if in > 0 && out < in {
			message += fmt.Sprintf(" (saved %d%%)", (in-out)*100/in)
		}
		if path := stringValue(data, "output_path"); path != "" {
			message += "\nFile: " + path
		}
		return payload{
			title:   "Shrink - Compressed",
			message: message,
			tags:    []string{"shrink", "compress", "completed"},
		}, true
	case EventJobFailed:
		message := fmt.Sprintf("❌ Failed to compress %s", fileName(data))
		if kind := stringValue(data, "error_kind"); kind != "" {
			message += " (" + kind + ")"
		}
		if errText := stringValue(data, "error"); errText != "" {
			message += ": " + errText
		}
		return payload{
			title:    "Shrink - Error",
			message:  message,
			tags:     []string{"shrink", "error", "alert"},
			priority: "high",
		}, true
	case EventBatchCompleted:
		processed, failed := int64Value(data, "processed"), int64Value(data, "failed")
		duration := time.Duration(int64Value(data, "duration_ms")) * time.Millisecond
		durationText := duration.Round(time.Second).String()
		saved := humanize.Bytes(uint64(max(int64Value(data, "saved_bytes"), 0)))
		if failed == 0 {
			return payload{
				title:   "Shrink - Batch Complete",
				message: fmt.Sprintf("%d files compressed in %s, saved %s", processed, durationText, saved),
				tags:    []string{"shrink", "batch", "completed"},
			}, true
		}
		return payload{
			title:   "Shrink - Batch Complete (with errors)",
			message: fmt.Sprintf("%d succeeded, %d failed in %s, saved %s", processed, failed, durationText, saved),
			tags:    []string{"shrink", "batch", "completed"},
		}, true
	case EventDependenciesInstalled:
		names := stringValue(data, "installed")
		if names == "" {
			names = "nothing to install"
		}
		return payload{
			title:   "Shrink - Dependencies Installed",
			message: "📦 Installed: " + names,
			tags:    []string{"shrink", "dependencies", "installed"},
		}, true
	case EventTestNotification:
		return payload{
			title:    "Shrink - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"shrink", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func fileName(data Payload) string {
	if path := stringValue(data, "input_path"); path != "" {
		return filepath.Base(path)
	}
	return "file"
}

func stringValue(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		return strings.Join(v, ", ")
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func int64Value(data Payload, key string) int64 {
	switch v := data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
