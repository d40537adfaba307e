package capture

import (
	"context"
	"errors"
	"time"
)

// Cleanup runs the stop sequence. It distinguishes three stop outcomes:
//
//   - stop acknowledged: wait a grace period for the server to finalize,
//     then shut the helper down,
//   - stop timed out: the helper most likely already died from the same
//     SIGINT we got, so skip shutdown entirely (calling it would respawn
//     the helper) after giving the server time to notice the disconnect,
//   - any other error: wait the grace period and still attempt shutdown.
//
// The done channel closes at the end regardless of path taken.
func (c *Client) Cleanup(ctx context.Context) {
	defer close(c.done)

	c.log.Info("[capture] stopping capture")
	helperExited := false

	err := c.StopCapture(ctx)
	switch {
	case err == nil:
		c.log.Info("[capture] stop acknowledged, waiting for server to finalize")
		c.sleep(ctx, c.grace)

	case errors.Is(err, context.DeadlineExceeded):
		c.log.Warn("[capture] stop timed out, helper likely already exited")
		helperExited = true
		c.sleep(ctx, c.grace)

	default:
		c.log.Warnf("[capture] error during stop: %v", err)
		c.sleep(ctx, c.grace)
	}

	if helperExited {
		c.log.Warn("[capture] skipping shutdown call (helper already terminated)")
		return
	}

	if err := c.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.Warn("[capture] shutdown timed out")
		} else {
			c.log.Warnf("[capture] error during shutdown: %v", err)
		}
		return
	}
	c.log.Info("[capture] helper shutdown complete")
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
