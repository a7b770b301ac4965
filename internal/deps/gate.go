package deps

import (
	"context"
	"sync"
)

// Gate keeps dependency installs and compression jobs apart. Jobs take a
// shared hold; an install takes it exclusively. A nil Gate admits everything.
type Gate struct {
	mu sync.RWMutex
}

// Acquire takes a shared hold without waiting. It fails while an install is
// running or waiting for jobs to drain.
func (g *Gate) Acquire() (release func(), ok bool) {
	if g == nil {
		return func() {}, true
	}
	if !g.mu.TryRLock() {
		return nil, false
	}
	return g.mu.RUnlock, true
}

// lock waits for running jobs to drain and takes the exclusive hold. New
// shared holds are refused from the moment lock is called.
func (g *Gate) lock(ctx context.Context) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	acquired := make(chan struct{})
	go func() {
		g.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return g.mu.Unlock, nil
	case <-ctx.Done():
		go func() {
			<-acquired
			g.mu.Unlock()
		}()
		return nil, ctx.Err()
	}
}
