// SPDX-License-Identifier: MPL-2.0

package clonedrepo

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxParallelClones bounds concurrent network fetches.
const maxParallelClones = 4

// runParallel calls fn for every request with bounded concurrency and
// returns all failures joined in request order.
func runParallel(ctx context.Context, reqs []Request, fn func(context.Context, Request) error) error {
	if len(reqs) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs = make([]error, len(reqs))
	)
	g.SetLimit(maxParallelClones)

	for i, req := range reqs {
		g.Go(func() error {
			err := fn(ctx, req)
			mu.Lock()
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
