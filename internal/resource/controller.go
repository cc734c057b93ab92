package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrOverloaded is returned by TryAdmit callers when no slot is free.
var ErrOverloaded = errors.New("server overloaded")

// Config holds resource limits. Zero values disable a limit.
type Config struct {
	// MaxInFlight is the maximum number of concurrently admitted requests.
	MaxInFlight int64

	// RequestsPerSecond is the sustained admission rate.
	RequestsPerSecond float64

	// Burst is the token bucket size for RequestsPerSecond.
	// If 0, it defaults to max(1, RequestsPerSecond).
	Burst int

	// IOLimitBytesPerSec is the maximum throughput of rate-limited readers.
	IOLimitBytesPerSec int64
}

// Controller enforces the limits of a Config.
type Controller struct {
	cfg Config

	inflightSem *semaphore.Weighted // nil if unlimited
	inflight    atomic.Int64

	reqLimiter *rate.Limiter // nil if unlimited
	ioLimiter  *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxInFlight > 0 {
		c.inflightSem = semaphore.NewWeighted(cfg.MaxInFlight)
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		c.reqLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Admit waits for a rate token and an in-flight slot.
// Every successful Admit must be paired with Release.
func (c *Controller) Admit(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.reqLimiter != nil {
		if err := c.reqLimiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.inflightSem != nil {
		if err := c.inflightSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.inflight.Add(1)
	return nil
}

// TryAdmit admits without blocking. It reports false if either limit is
// exhausted; a true result must be paired with Release.
func (c *Controller) TryAdmit() bool {
	if c == nil {
		return true
	}
	if c.reqLimiter != nil && !c.reqLimiter.Allow() {
		return false
	}
	if c.inflightSem != nil && !c.inflightSem.TryAcquire(1) {
		return false
	}
	c.inflight.Add(1)
	return true
}

// Release frees the in-flight slot taken by Admit or TryAdmit.
func (c *Controller) Release() {
	if c == nil {
		return
	}
	c.inflight.Add(-1)
	if c.inflightSem != nil {
		c.inflightSem.Release(1)
	}
}

// InFlight returns the number of admitted, unreleased requests.
func (c *Controller) InFlight() int64 {
	if c == nil {
		return 0
	}
	return c.inflight.Load()
}

// MaxInFlight returns the configured in-flight limit (0 if unlimited).
func (c *Controller) MaxInFlight() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxInFlight
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}

// ioChunk returns the largest read that AcquireIO can grant at once.
func (c *Controller) ioChunk() int {
	if c == nil || c.ioLimiter == nil {
		return 0
	}
	return c.ioLimiter.Burst()
}
