package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects.
//   - Effect results are turned into Events and fed back into the reducer.
//   - Hardware is read here, at tick time, and the readings travel inside the tick.
//
// Three tickers (sample, poll, display) and inbound events share one explicit
// event queue, so ticks never interleave with each other or with effects.
//
// ============================================================================

// ButtonInput reports whether the menu button is held down.
type ButtonInput interface {
	Asserted(now time.Time) bool
}

// DaemonInputs are the hardware readings sampled on each tick.
type DaemonInputs struct {
	Wheel  DeltaSource
	Menu   DeltaSource
	Button ButtonInput
}

// DaemonIntervals are the tick cadences.
type DaemonIntervals struct {
	Sample  time.Duration
	Poll    time.Duration
	Display time.Duration
}

// runDaemon is the main daemon loop that:
//   - Receives Events from other goroutines (snapshot requests)
//   - Emits tick events on three fixed cadences, carrying fresh hardware readings
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and feeds observations back into the reducer
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	in DaemonInputs,
	fx *effectTargets,
	cfg ReducerConfig,
	iv DaemonIntervals,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}

	sampleTicker := time.NewTicker(iv.Sample)
	defer sampleTicker.Stop()
	pollTicker := time.NewTicker(iv.Poll)
	defer pollTicker.Stop()
	displayTicker := time.NewTicker(iv.Display)
	defer displayTicker.Stop()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bcs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping", "type", broadcastType(b))
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			logger.Debug("effect", "command", cmd.String())
			runEffect(ctx, fx, cmd, logger, enqueueEvent)

			// Reduce observations promptly so follow-up commands run in order.
			flushEvents()
		}
	}

	step := func(ev Event) {
		enqueueEvent(ev)
		flushEvents()
		flushCommands()
	}

	logger.Info("daemon started",
		"sample_interval", iv.Sample,
		"poll_interval", iv.Poll,
		"display_interval", iv.Display)

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			step(ev)

		case now := <-sampleTicker.C:
			duty := 0
			if fx.actuator != nil {
				duty = fx.actuator.CurrentDuty()
			}
			step(SampleTick{
				Now:        now,
				WheelDelta: in.Wheel.ReadAndResetDelta(),
				Duty:       duty,
			})

		case now := <-pollTicker.C:
			step(PollTick{
				Now:            now,
				MenuDelta:      in.Menu.ReadAndResetDelta(),
				ButtonAsserted: in.Button.Asserted(now),
			})

		case now := <-displayTicker.C:
			step(DisplayTick{Now: now})
		}
	}
}
