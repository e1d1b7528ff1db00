package main

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// oledPresenter renders frames on an SSD1306 panel over I2C. Unchanged frames
// are not resent.
type oledPresenter struct {
	dev  *ssd1306.Dev
	img  *image1bit.VerticalLSB
	last Frame
	sent bool
}

func openOLED(bus i2c.Bus, width, height int) (*oledPresenter, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: width, H: height})
	if err != nil {
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	p := &oledPresenter{
		dev: dev,
		img: image1bit.NewVerticalLSB(dev.Bounds()),
	}
	if err := p.splash(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *oledPresenter) splash() error {
	renderFrame(p.img, Frame{Status: "Starting..."})
	if err := p.dev.Draw(p.dev.Bounds(), p.img, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 splash: %w", err)
	}
	return nil
}

func (p *oledPresenter) Present(f Frame) error {
	if p.sent && f == p.last {
		return nil
	}
	renderFrame(p.img, f)
	if err := p.dev.Draw(p.dev.Bounds(), p.img, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	p.last = f
	p.sent = true
	return nil
}

// Close blanks the panel.
func (p *oledPresenter) Close() error {
	return p.dev.Halt()
}
