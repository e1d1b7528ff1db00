//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/multierr"
	"tinygo.org/x/drivers"
)

// hardware bundles everything the daemon drives or reads, whichever backend
// produced it.
type hardware struct {
	actuator *softFader
	wheel    *encoderCounter
	menu     *encoderCounter
	button   *benchButton
	store    ByteStore

	presenters presenterSet
	png        *pngPresenter

	// runInputs feeds the encoder counters until ctx is done. Nil when the
	// backend has no input devices.
	runInputs func(ctx context.Context) error

	closers []io.Closer
}

func (h *hardware) inputs() DaemonInputs {
	return DaemonInputs{Wheel: h.wheel, Menu: h.menu, Button: h.button}
}

func (h *hardware) effects() *effectTargets {
	return &effectTargets{actuator: h.actuator, store: h.store, presenter: h.presenters}
}

// Close parks the motor first, then releases devices in reverse order.
func (h *hardware) Close() error {
	var err error
	if h.actuator != nil {
		err = multierr.Append(err, h.actuator.Close())
	}
	for i := len(h.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.closers[i].Close())
	}
	return err
}

func (h *hardware) addCloser(c io.Closer) {
	if c != nil {
		h.closers = append(h.closers, c)
	}
}

// openHardware builds the configured backend.
func openHardware(cfg *Config, logger *slog.Logger) (*hardware, error) {
	switch cfg.Hardware.Backend {
	case backendPeriph:
		return openPeriphHardware(cfg, logger)
	case backendSim:
		return openSimHardware(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown hardware backend %q", cfg.Hardware.Backend)
	}
}

// openStore opens the settings store. bus is only needed for the eeprom backend.
func openStore(cfg StorageConfig, bus drivers.I2C) (ByteStore, io.Closer, error) {
	switch cfg.Backend {
	case storageFile:
		st, err := openFileStore(ExpandPath(cfg.Path), storeSize)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case storageEEPROM:
		if bus == nil {
			return nil, nil, errors.New("eeprom storage needs an i2c bus")
		}
		st, err := openEEPROMStore(bus, uint16(cfg.EEPROMAddr), storeSize, cfg.EEPROMPageSize)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	case storageMemory:
		return newMemStore(storeSize), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newDisplayPresenters returns the presenters every backend gets: the log and
// the PNG mirror.
func newDisplayPresenters(cfg DisplayConfig, logger *slog.Logger) (presenterSet, *pngPresenter) {
	png := newPNGPresenter(cfg.Width, cfg.Height, cfg.PNGScale, logger)
	return presenterSet{newLogPresenter(logger), png}, png
}
