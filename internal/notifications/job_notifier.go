package notifications

import (
	"context"
	"log/slog"

	"shrink/internal/compress"
	"shrink/internal/logging"
	"shrink/internal/services"
)

// JobNotifier forwards terminal job outcomes to a Service. It satisfies
// compress.Notifier.
type JobNotifier struct {
	service Service
	logger  *slog.Logger
}

// NewJobNotifier wraps service. A nil logger discards delivery failures.
func NewJobNotifier(service Service, logger *slog.Logger) *JobNotifier {
	return &JobNotifier{service: service, logger: logging.NewComponentLogger(logger, "notifications")}
}

// JobFinished publishes job_completed or job_failed. Delivery failures are
// logged, never returned.
func (n *JobNotifier) JobFinished(ctx context.Context, outcome compress.Outcome) {
	if n == nil || n.service == nil {
		return
	}
	data := Payload{
		"job_id":      outcome.JobID,
		"input_path":  outcome.Path,
		"input_bytes": outcome.InputSizeBytes,
	}
	event := EventJobCompleted
	if outcome.Err != nil {
		event = EventJobFailed
		data["error_kind"] = services.Kind(outcome.Err)
		data["error"] = outcome.Err.Error()
	}
	if res := outcome.Result; res != nil {
		data["output_path"] = res.OutputPath
		data["output_bytes"] = res.OutputSizeBytes
	}
	if err := n.service.Publish(ctx, event, data); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, n.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push notification for this job"),
		)
	}
}
