package compress

import (
	"log/slog"
	"math"

	"shrink/internal/logging"
)

const progressLogBucket = 5

// progressTracker forwards strictly increasing percents below 100. The single
// 100 is sent by complete.
type progressTracker struct {
	jobID   string
	sink    func(Event)
	last    float64
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newProgressTracker(jobID string, sink func(Event), logger *slog.Logger) *progressTracker {
	return &progressTracker{
		jobID:   jobID,
		sink:    sink,
		sampler: logging.NewProgressSampler(progressLogBucket),
		logger:  logger,
	}
}

func (p *progressTracker) observe(percent float64) {
	percent = math.Floor(percent*10) / 10
	if percent >= 100 || percent <= p.last {
		return
	}
	p.last = percent
	p.sink(Event{JobID: p.jobID, Type: EventProgress, Percent: percent})
	if p.sampler.ShouldLog(percent, "encoding") {
		p.logger.Info("encoding progress", logging.Float64("percent", percent))
	}
}

func (p *progressTracker) complete() {
	p.last = 100
	p.sink(Event{JobID: p.jobID, Type: EventProgress, Percent: 100})
}
