package rigid2d

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// StepAll steps independent worlds concurrently, one goroutine per world.
// Worlds must not share bodies, listeners with shared state, or loggers
// whose handlers are not safe for concurrent use. The first error cancels
// worlds that have not started yet; worlds already stepping run to
// completion.
func StepAll(ctx context.Context, worlds []*World, dt float64, velocityIterations, positionIterations int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, w := range worlds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.Step(dt, velocityIterations, positionIterations); err != nil {
				return fmt.Errorf("world %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
