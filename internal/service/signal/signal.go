package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"platewatch/internal/logger"
)

// Sink switches an external actuator on or off.
type Sink interface {
	Set(ctx context.Context, on bool) error
}

// Nop is used when no actuator is configured.
type Nop struct{}

func (Nop) Set(context.Context, bool) error { return nil }

// Multi drives every sink and joins their errors.
type Multi []Sink

func (m Multi) Set(ctx context.Context, on bool) error {
	var errs []error
	for _, s := range m {
		if err := s.Set(ctx, on); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Controller turns a stream of match/no-match decisions into on/off edges.
// The sink is switched on by the first match and switched off by the first
// non-match once hold has elapsed since the last match.
type Controller struct {
	sink   Sink
	hold   time.Duration
	logger *logger.Logger

	mu        sync.Mutex
	on        bool
	lastMatch time.Time
	switches  uint64
}

func NewController(sink Sink, hold time.Duration, logger *logger.Logger) *Controller {
	if sink == nil {
		sink = Nop{}
	}
	return &Controller{sink: sink, hold: hold, logger: logger}
}

// Update feeds one decision outcome observed at now.
func (c *Controller) Update(ctx context.Context, matched bool, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if matched {
		c.lastMatch = now
		if !c.on {
			c.set(ctx, true)
		}
		return
	}

	if c.on && now.Sub(c.lastMatch) >= c.hold {
		c.set(ctx, false)
	}
}

// Off forces the sink off, e.g. on shutdown.
func (c *Controller) Off(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.on {
		c.set(ctx, false)
	}
}

// On reports the last state successfully written to the sink.
func (c *Controller) On() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

func (c *Controller) Switches() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switches
}

func (c *Controller) set(ctx context.Context, on bool) {
	if err := c.sink.Set(ctx, on); err != nil {
		c.logger.Error("Failed to switch signal %s: %v", state(on), err)
		return
	}
	c.on = on
	c.switches++
	c.logger.Info("Signal switched %s", state(on))
}

func state(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
