package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs, emitting only when the
// percent crosses a bucket boundary or the job state changes.
type ProgressSampler struct {
	bucketSize float64
	lastState  string
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent. Non-positive widths fall back to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress sample should be logged. A negative
// percent means unknown and only state changes are considered.
func (s *ProgressSampler) ShouldLog(percent float64, state string) bool {
	if s == nil {
		return true
	}
	state = strings.TrimSpace(state)
	emit := false
	if state != "" && state != s.lastState {
		s.lastState = state
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastState = ""
	s.lastBucket = -1
}
