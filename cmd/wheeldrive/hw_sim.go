//go:build linux

package main

import (
	"log/slog"
	"sync/atomic"
)

// simDuty records the duty instead of driving a pin.
type simDuty struct {
	duty atomic.Int64
}

func (s *simDuty) SetDuty(duty int) error {
	s.duty.Store(int64(duty))
	return nil
}

type simLevel struct {
	high   atomic.Bool
	logger *slog.Logger
}

func (s *simLevel) SetLevel(high bool) error {
	if s.high.Swap(high) != high {
		s.logger.Debug("sim direction pin", "high", high)
	}
	return nil
}

// openSimHardware builds a backend with no devices: the motor output is
// recorded, and the encoders and button only move through the bench socket.
func openSimHardware(cfg *Config, logger *slog.Logger) (*hardware, error) {
	hw := &hardware{
		wheel:  &encoderCounter{},
		menu:   &encoderCounter{},
		button: &benchButton{},
	}
	hw.actuator = newSoftFader(&simDuty{}, &simLevel{logger: logger}, cfg.DutyMax())
	hw.presenters, hw.png = newDisplayPresenters(cfg.Display, logger)

	st, closer, err := openStore(cfg.Storage, nil)
	if err != nil {
		return nil, err
	}
	hw.store = st
	hw.addCloser(closer)

	logger.Info("sim hardware ready", "storage", cfg.Storage.Backend, "duty_max", cfg.DutyMax())
	return hw, nil
}
