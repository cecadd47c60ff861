package proxy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"auction-relay/internal/observability"
)

// reads runs a set of contract reads in parallel. A required read that
// fails cancels the rest and fails the set; an optional one is recorded.
type reads struct {
	g   *errgroup.Group
	ctx context.Context

	mu     sync.Mutex
	failed map[string]string
}

func newReads(ctx context.Context) *reads {
	g, gctx := errgroup.WithContext(ctx)
	return &reads{g: g, ctx: gctx, failed: make(map[string]string)}
}

func (r *reads) required(name string, fn func(ctx context.Context) error) {
	r.g.Go(func() error {
		if err := fn(r.ctx); err != nil {
			observability.RecordContractReadError(name)
			return &RequiredReadError{Read: name, Err: err}
		}
		return nil
	})
}

func (r *reads) optional(name string, fn func(ctx context.Context) error) {
	r.g.Go(func() error {
		if err := fn(r.ctx); err != nil {
			observability.RecordContractReadError(name)
			r.mu.Lock()
			r.failed[name] = err.Error()
			r.mu.Unlock()
		}
		return nil
	})
}

// wait returns the first required failure, or the optional failures.
func (r *reads) wait() (map[string]string, error) {
	if err := r.g.Wait(); err != nil {
		return nil, err
	}
	if len(r.failed) == 0 {
		return nil, nil
	}
	return r.failed, nil
}
