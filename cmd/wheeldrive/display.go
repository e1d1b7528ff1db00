package main

import (
	"image"
	"image/draw"
	"log/slog"

	"go.uber.org/multierr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Presenter is a sink for menu frames. It never feeds input back to the core.
type Presenter interface {
	Present(f Frame) error
}

// presenterSet fans a frame out to several presenters. Every presenter is
// tried; failures are combined.
type presenterSet []Presenter

func (ps presenterSet) Present(f Frame) error {
	var err error
	for _, p := range ps {
		err = multierr.Append(err, p.Present(f))
	}
	return err
}

// modeTracker detects mode transitions between consecutive frames.
type modeTracker struct {
	prev  Mode
	known bool
}

// Transition records m and reports whether it differs from the previous mode.
// The first call always reports a transition.
func (t *modeTracker) Transition(m Mode) bool {
	changed := !t.known || t.prev != m
	t.prev = m
	t.known = true
	return changed
}

// logPresenter writes frames to the log: transitions at info, the rest at debug.
type logPresenter struct {
	logger  *slog.Logger
	tracker modeTracker
}

func newLogPresenter(logger *slog.Logger) *logPresenter {
	return &logPresenter{logger: logger}
}

func (p *logPresenter) Present(f Frame) error {
	if p.tracker.Transition(f.Mode) {
		p.logger.Info("display mode", "mode", f.Mode.String(), "label", f.Label, "value", f.Value)
		return nil
	}
	p.logger.Debug("display frame", "mode", f.Mode.String(), "value", f.Value, "detail", f.Detail, "status", f.Status)
	return nil
}

// Text layout for a 128x32 panel using the 7x13 face (ascent 11, descent 2):
// two lines, label on top, value below. The Running detail shares the value
// line so nothing crosses the panel edge.
const (
	lineLabelY = 11
	lineValueY = 27
	statusX    = 10
	statusY    = 20
)

// renderFrame draws f onto dst in white on black. A status banner replaces the
// regular lines.
func renderFrame(dst draw.Image, f Frame) {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	if f.Status != "" {
		drawText(dst, statusX, statusY, f.Status)
		return
	}
	drawText(dst, 0, lineLabelY, f.Label)
	value := f.Value
	if f.Detail != "" {
		value += " " + f.Detail
	}
	drawText(dst, 0, lineValueY, value)
}

func drawText(dst draw.Image, x, y int, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
