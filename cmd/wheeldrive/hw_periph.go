//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// periphDuty drives a hardware PWM pin. Duty is scaled from [0, dutyMax] to
// periph's gpio.DutyMax.
type periphDuty struct {
	pin     gpio.PinOut
	freq    physic.Frequency
	dutyMax int
}

func (p *periphDuty) SetDuty(duty int) error {
	d := gpio.Duty(int64(duty) * int64(gpio.DutyMax) / int64(p.dutyMax))
	return p.pin.PWM(d, p.freq)
}

type periphLevel struct {
	pin gpio.PinOut
}

func (p *periphLevel) SetLevel(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

// periphButton reads the menu button pin.
type periphButton struct {
	pin       gpio.PinIn
	activeLow bool
}

func (b *periphButton) Asserted(now time.Time) bool {
	return (b.pin.Read() == gpio.Low) == b.activeLow
}

func lookupPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return p, nil
}

// openPeriphHardware opens the GPIO pins, the I2C bus (OLED and EEPROM) and the
// evdev encoders. On error everything opened so far is released.
func openPeriphHardware(cfg *Config, logger *slog.Logger) (hw *hardware, err error) {
	hc := cfg.Hardware

	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	logger.Debug("periph drivers loaded", "loaded", len(state.Loaded), "failed", len(state.Failed))

	hw = &hardware{
		wheel: &encoderCounter{},
		menu:  &encoderCounter{},
	}
	defer func() {
		if err != nil {
			_ = hw.Close()
			hw = nil
		}
	}()

	pwmPin, err := lookupPin(hc.PWMPin)
	if err != nil {
		return hw, err
	}
	dirPin, err := lookupPin(hc.DirPin)
	if err != nil {
		return hw, err
	}
	btnPin, err := lookupPin(hc.ButtonPin)
	if err != nil {
		return hw, err
	}

	pull := gpio.PullDown
	if hc.ButtonActiveLow {
		pull = gpio.PullUp
	}
	if err := btnPin.In(pull, gpio.NoEdge); err != nil {
		return hw, fmt.Errorf("configure button pin %s: %w", hc.ButtonPin, err)
	}
	if err := dirPin.Out(gpio.Low); err != nil {
		return hw, fmt.Errorf("configure direction pin %s: %w", hc.DirPin, err)
	}

	dutyMax := cfg.DutyMax()
	duty := &periphDuty{
		pin:     pwmPin,
		freq:    physic.Frequency(hc.PWMFrequencyHz) * physic.Hertz,
		dutyMax: dutyMax,
	}
	if err := duty.SetDuty(0); err != nil {
		return hw, fmt.Errorf("configure pwm pin %s: %w", hc.PWMPin, err)
	}
	hw.actuator = newSoftFader(duty, &periphLevel{pin: dirPin}, dutyMax)
	hw.button = &benchButton{pin: &periphButton{pin: btnPin, activeLow: hc.ButtonActiveLow}}

	var bus i2c.BusCloser
	if cfg.Display.OLED || cfg.Storage.Backend == storageEEPROM {
		bus, err = i2creg.Open(hc.I2CBus)
		if err != nil {
			return hw, fmt.Errorf("open i2c bus %q: %w", hc.I2CBus, err)
		}
		hw.addCloser(bus)
	}

	hw.presenters, hw.png = newDisplayPresenters(cfg.Display, logger)
	if cfg.Display.OLED {
		oled, err := openOLED(bus, cfg.Display.Width, cfg.Display.Height)
		if err != nil {
			return hw, err
		}
		hw.addCloser(oled)
		hw.presenters = append(hw.presenters, oled)
	}

	var storeBus i2c.Bus
	if bus != nil {
		storeBus = bus
	}
	st, closer, err := openStore(cfg.Storage, storeBus)
	if err != nil {
		return hw, fmt.Errorf("open settings store: %w", err)
	}
	hw.store = st
	hw.addCloser(closer)

	devices := []string{hc.WheelDevice, hc.MenuDevice}
	counters := []*encoderCounter{hw.wheel, hw.menu}
	hw.runInputs = func(ctx context.Context) error {
		return runEncoderInputs(ctx, devices, counters, logger)
	}

	logger.Info("periph hardware ready",
		"pwm_pin", hc.PWMPin,
		"dir_pin", hc.DirPin,
		"button_pin", hc.ButtonPin,
		"pwm_hz", hc.PWMFrequencyHz,
		"duty_max", dutyMax,
		"oled", cfg.Display.OLED,
		"storage", cfg.Storage.Backend,
	)
	return hw, nil
}
