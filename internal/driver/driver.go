// Package driver implements the tick loop that advances the clock,
// dispatches due events, delivers ready packets, and ticks every running
// node, in that fixed order every iteration.
package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meshsim/meshsim/internal/clock"
	"github.com/meshsim/meshsim/internal/logging"
	"github.com/meshsim/meshsim/internal/simworld"
)

// DefaultTickDeltaMs is the default simulated-time step per iteration,
// a ~100 Hz update rate.
const DefaultTickDeltaMs = 10

// Driver runs the simulation's main loop against a World.
type Driver struct {
	world        *simworld.World
	clock        *clock.Clock
	tickDeltaMs  int64
	timeScale    float64
	durationMs   int64
	logger       *zap.SugaredLogger
}

// Config configures one Driver run.
type Config struct {
	TickDeltaMs int64   // 0 defaults to DefaultTickDeltaMs
	TimeScale   float64 // 0 = as fast as possible, >0 paces real time
	DurationMs  int64   // 0 = unbounded, run until ctx is cancelled
}

// New constructs a Driver bound to world.
func New(world *simworld.World, cfg Config) *Driver {
	delta := cfg.TickDeltaMs
	if delta <= 0 {
		delta = DefaultTickDeltaMs
	}
	return &Driver{
		world:       world,
		clock:       clock.New(),
		tickDeltaMs: delta,
		timeScale:   cfg.TimeScale,
		durationMs:  cfg.DurationMs,
		logger:      logging.Component("driver"),
	}
}

// Now returns the current simulated time in milliseconds. Safe to poll
// from another goroutine (e.g. a dashboard) since the clock is only
// ever advanced forward and reads of an int64 field are atomic on every
// platform this module targets.
func (d *Driver) Now() int64 { return d.clock.Now() }

// World returns the Driver's bound World, for read-only inspection by
// a dashboard running alongside Run in another goroutine.
func (d *Driver) World() *simworld.World { return d.world }

// Run executes the tick loop until the configured duration elapses or
// ctx is cancelled (the operator's shutdown signal). It finishes the
// current tick's deliveries and node ticks before honoring
// cancellation; there is no mid-tick cancellation.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.world.Registry().StartAll(d.world.Plane(), d.clock.Now()); err != nil {
		return err
	}

	for {
		target := d.clock.Now() + d.tickDeltaMs
		d.clock.AdvanceTo(target)
		now := d.clock.Now()

		for _, result := range d.world.Scheduler().DispatchDue(now, d.world) {
			if result.Err != nil {
				d.logger.Warnw("event dispatch failed",
					"sim_time_ms", now, "component", "scheduler",
					"event", result.Event.Name(), "error", result.Err)
			}
		}

		for _, delivery := range d.world.Plane().PollReady(now) {
			node, err := d.world.Registry().Get(delivery.Destination)
			if err != nil || !node.IsRunning() {
				continue
			}
			node.OnReceive(d.world.Plane(), now, delivery.Source, delivery.Payload)
		}

		for _, id := range d.world.Registry().RunningIDs() {
			node, err := d.world.Registry().Get(id)
			if err != nil {
				continue
			}
			node.Tick(d.world.Plane(), now)
		}

		if d.timeScale > 0 {
			sleepMs := float64(d.tickDeltaMs) / d.timeScale
			select {
			case <-time.After(time.Duration(sleepMs) * time.Millisecond):
			case <-ctx.Done():
				d.world.Registry().StopAll(d.world.Plane(), now)
				return nil
			}
		}

		if d.durationMs > 0 && now >= d.durationMs {
			break
		}

		select {
		case <-ctx.Done():
			d.world.Registry().StopAll(d.world.Plane(), now)
			return nil
		default:
		}
	}

	d.world.Registry().StopAll(d.world.Plane(), d.clock.Now())
	return nil
}
