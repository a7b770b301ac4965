package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"shrink/internal/compress"
	"shrink/internal/services"
)

// maxJobsPerRequest bounds a single submission.
const maxJobsPerRequest = 500

// DecodeJobs reads a JobsRequest, assigns IDs to jobs that lack one and
// rejects duplicate IDs or empty paths. Settings are validated later by the
// runner so each job fails on its own.
func DecodeJobs(r io.Reader) ([]compress.Request, error) {
	var body JobsRequest
	dec := json.NewDecoder(io.LimitReader(r, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "decode jobs", "invalid request body", err)
	}
	if len(body.Jobs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "decode jobs", "no jobs supplied", nil)
	}
	if len(body.Jobs) > maxJobsPerRequest {
		return nil, services.Wrap(services.ErrValidation, "api", "decode jobs", fmt.Sprintf("too many jobs (%d > %d)", len(body.Jobs), maxJobsPerRequest), nil)
	}

	seen := make(map[string]struct{}, len(body.Jobs))
	for i := range body.Jobs {
		job := &body.Jobs[i]
		job.Path = strings.TrimSpace(job.Path)
		if job.Path == "" {
			return nil, services.Wrap(services.ErrValidation, "api", "decode jobs", fmt.Sprintf("job %d has no path", i), nil)
		}
		job.ID = strings.TrimSpace(job.ID)
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if _, dup := seen[job.ID]; dup {
			return nil, services.Wrap(services.ErrValidation, "api", "decode jobs", fmt.Sprintf("duplicate job id %q", job.ID), nil)
		}
		seen[job.ID] = struct{}{}
	}
	return body.Jobs, nil
}
