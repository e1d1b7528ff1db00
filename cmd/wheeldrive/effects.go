package main

import (
	"context"
	"log/slog"
	"time"
)

// renderErrLogInterval rate-limits display failure logs.
const renderErrLogInterval = 10 * time.Second

// effectTargets is everything a Command can act on.
type effectTargets struct {
	actuator  Actuator
	store     ByteStore
	presenter Presenter

	lastRenderErrLog time.Time
	renderErrCount   int
}

// runEffect executes a single reducer-emitted Command against the hardware and
// emits an observation Event via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O, and to block for waited ramps and holds.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
// - The daemon loop is responsible for sequencing: Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	ctx context.Context,
	fx *effectTargets,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdSetDirection:
		if fx.actuator == nil {
			onEvent(ActuatorFailed{Command: cmd, Err: errNoActuator{}, At: now})
			return
		}
		if err := fx.actuator.SetDirection(c.High); err != nil {
			logger.Error("set direction failed", "error", err, "high", c.High)
			onEvent(ActuatorFailed{Command: cmd, Err: err, At: now})
			return
		}
		logger.Debug("direction set", "high", c.High)

	case CmdRamp:
		if fx.actuator == nil {
			onEvent(ActuatorFailed{Command: cmd, Err: errNoActuator{}, At: now})
			return
		}
		if err := fx.actuator.RampTo(ctx, c.Target, c.Duration, c.Wait); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("ramp failed", "error", err, "target", c.Target, "duration", c.Duration)
			onEvent(ActuatorFailed{Command: cmd, Err: err, At: now})
		}

	case CmdHold:
		t := time.NewTimer(c.Duration)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}

	case CmdSaveSettings:
		if fx.store == nil {
			onEvent(SettingsSaved{Settings: c.Settings, Err: errNoStore{}, At: now})
			return
		}
		err := SaveSettings(fx.store, c.Settings)
		if err != nil {
			logger.Error("save settings failed", "error", err)
		} else {
			logger.Info("settings saved",
				"max_duty_percent", c.Settings.MaxDutyPercent,
				"speed_threshold", c.Settings.SpeedThreshold,
				"accel_time_ms", c.Settings.AccelTimeMS,
				"decel_time_ms", c.Settings.DecelTimeMS,
				"reverse_polarity", c.Settings.ReversePolarity)
		}
		onEvent(SettingsSaved{Settings: c.Settings, Err: err, At: time.Now()})

	case CmdRender:
		if fx.presenter == nil {
			return
		}
		if err := fx.presenter.Present(c.Frame); err != nil {
			fx.renderErrCount++
			if now.Sub(fx.lastRenderErrLog) >= renderErrLogInterval {
				logger.Warn("render failed", "error", err, "failures", fx.renderErrCount)
				fx.lastRenderErrLog = now
				fx.renderErrCount = 0
			}
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the effects worker indefinitely.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(ActuatorFailed{
			Command: cmd,
			Err:     errUnknownCommand{cmd: cmd},
			At:      now,
		})
	}
}

// errNoActuator indicates an actuator command arrived with no actuator wired.
type errNoActuator struct{}

func (errNoActuator) Error() string { return "no actuator" }

// errNoStore indicates a save arrived with no byte store wired.
type errNoStore struct{}

func (errNoStore) Error() string { return "no settings store" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
