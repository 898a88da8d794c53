package clock

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/deschron/peq"
)

// dispatchBatch hands a batch of due actions to a worker task. Zero actions
// complete immediately and inline, without spawning anything. One or
// more actions run concurrently via errgroup and are joined before the
// completion signal is sent — the only parallelism inside the engine (spec
// §5). The Clock's control loop is never blocked by this call.
func (c *Clock) dispatchBatch(ctx context.Context, actions []peq.Action[*Clock], dueTime time.Duration) {
	if len(actions) == 0 {
		// Handled directly rather than sent on reqCh: this runs on the loop
		// goroutine, which is the only reader of reqCh.
		c.handleComplete(ctx, request{kind: kindComplete, dueTime: dueTime})
		return
	}

	go func() {
		g, _ := errgroup.WithContext(context.Background())
		if c.cfg.MaxBatchWorkers > 0 {
			g.SetLimit(c.cfg.MaxBatchWorkers)
		}
		for _, action := range actions {
			action := action
			g.Go(func() error {
				// Action panics are deliberately not recovered: they
				// propagate out of this goroutine and crash the process,
				// per the engine's contract that action correctness is a
				// client responsibility (spec §4.2, §7).
				action(c)
				return nil
			})
		}
		_ = g.Wait()
		c.deliverComplete(ctx, dueTime, len(actions))
	}()
}

func (c *Clock) deliverComplete(ctx context.Context, dueTime time.Duration, batchSize int) {
	select {
	case c.reqCh <- request{kind: kindComplete, dueTime: dueTime, batchSize: batchSize}:
	case <-ctx.Done():
	}
}
