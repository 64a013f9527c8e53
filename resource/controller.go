// Package resource bounds the background work done by the persistence pump.
// Cache reads and writes are purely in-memory and are never throttled; only
// gateway traffic passes through the controller.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits for background persistence work.
type Config struct {
	// MaxBackgroundWorkers is the maximum number of concurrent gateway calls.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// WriteOpsPerSec limits gateway write throughput (saves and deletes).
	// If 0, unlimited.
	WriteOpsPerSec float64
}

// Controller manages concurrency and throughput for gateway traffic.
// A nil Controller is valid and enforces no limits.
type Controller struct {
	bgSem   *semaphore.Weighted
	limiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.WriteOpsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.WriteOpsPerSec), 1)
	}
	return c
}

// AcquireWorker reserves a background slot, blocking until one is available
// or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// ReleaseWorker returns a background slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// WaitWrite blocks until the rate limiter admits one gateway write.
func (c *Controller) WaitWrite(ctx context.Context) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
