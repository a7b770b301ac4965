package compress

import (
	"context"
	"errors"
	"slices"

	"shrink/internal/media"
)

// Order returns reqs with images ahead of videos. Relative order within a
// kind is kept.
func Order(reqs []Request) []Request {
	sorted := slices.Clone(reqs)
	slices.SortStableFunc(sorted, func(a, b Request) int {
		return kindRank(a) - kindRank(b)
	})
	return sorted
}

func kindRank(req Request) int {
	kind := req.Kind
	if kind == "" || kind == media.KindUnknown {
		kind = media.Classify(req.Path)
	}
	switch kind {
	case media.KindImage:
		return 0
	case media.KindVideo:
		return 1
	default:
		return 2
	}
}

// RunAll runs reqs one at a time in Order, continuing past failures. Results
// hold the successful jobs; the error joins every failure.
func (r *Runner) RunAll(ctx context.Context, reqs []Request, sink func(Event)) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, req := range Order(reqs) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := r.Run(ctx, req, sink)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}
