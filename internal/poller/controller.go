// Package poller runs a restartable repeating task whose results can be
// invalidated by stopping it.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"moff.io/wallet-modal/pkg/log"
)

// DefaultInterval is used when New receives a non-positive interval.
const DefaultInterval = time.Second

// Generation stamps the results of one Start..Stop run.
type Generation uint64

// TickFunc performs one tick. Results it produces must be published only
// while Active(gen) holds.
type TickFunc func(ctx context.Context, gen Generation)

// Controller ticks at a fixed interval measured from the end of the previous
// tick, so ticks never overlap.
type Controller struct {
	interval time.Duration
	tick     TickFunc

	gen atomic.Uint64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func New(interval time.Duration, tick TickFunc) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		interval: interval,
		tick:     tick,
	}
}

// Start runs one tick before returning and then keeps ticking until Stop.
// Starting a running controller does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	stop := make(chan struct{})
	c.stop = stop
	gen := Generation(c.gen.Inc())
	c.mu.Unlock()

	log.Debugf("poller generation %d starting, interval %v", gen, c.interval)
	c.tick(ctx, gen)
	if !c.Active(gen) {
		return
	}
	go c.loop(ctx, gen, stop)
}

func (c *Controller) loop(ctx context.Context, gen Generation, stop <-chan struct{}) {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	defer log.Debugf("poller generation %d stopped", gen)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.stopGeneration(gen)
			return
		case <-timer.C:
			if !c.Active(gen) {
				return
			}
			c.tick(ctx, gen)
			timer.Reset(c.interval)
		}
	}
}

// Stop invalidates the current generation and ends the loop. A tick in
// flight runs to completion but its results are no longer Active. Stop does
// not wait, so it is safe to call from inside a tick.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.gen.Inc()
	close(c.stop)
	c.stop = nil
}

func (c *Controller) stopGeneration(gen Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || Generation(c.gen.Load()) != gen {
		return
	}
	c.running = false
	c.gen.Inc()
	close(c.stop)
	c.stop = nil
}

// Active reports whether results stamped with gen may be published.
func (c *Controller) Active(gen Generation) bool {
	return Generation(c.gen.Load()) == gen
}

// Current returns the newest generation.
func (c *Controller) Current() Generation {
	return Generation(c.gen.Load())
}

// Running reports whether the controller is between Start and Stop.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) Interval() time.Duration {
	return c.interval
}
