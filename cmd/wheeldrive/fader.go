package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Actuator is the motor output as the effects stage sees it.
type Actuator interface {
	// RampTo fades the duty to target over dur. A new ramp supersedes the one
	// in flight. With wait set it returns once the ramp ends or ctx is done.
	RampTo(ctx context.Context, target int, dur time.Duration, wait bool) error
	CurrentDuty() int
	SetDirection(high bool) error
}

// DutyWriter applies a raw duty in [0, dutyMax].
type DutyWriter interface {
	SetDuty(duty int) error
}

// LevelWriter drives a digital output.
type LevelWriter interface {
	SetLevel(high bool) error
}

const defaultFadeStep = 2 * time.Millisecond

// softFader is a software fade engine: a goroutine walks the duty linearly
// toward the target in fixed steps.
type softFader struct {
	out     DutyWriter
	dir     LevelWriter
	dutyMax int
	step    time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error

	current atomic.Int64
}

func newSoftFader(out DutyWriter, dir LevelWriter, dutyMax int) *softFader {
	return &softFader{
		out:     out,
		dir:     dir,
		dutyMax: dutyMax,
		step:    defaultFadeStep,
	}
}

func (f *softFader) CurrentDuty() int {
	return int(f.current.Load())
}

func (f *softFader) SetDirection(high bool) error {
	if f.dir == nil {
		return errNoActuator{}
	}
	return f.dir.SetLevel(high)
}

func (f *softFader) RampTo(ctx context.Context, target int, dur time.Duration, wait bool) error {
	target = clampInt(target, 0, f.dutyMax)

	f.mu.Lock()
	f.stopLocked()
	prevErr := f.lastErr
	f.lastErr = nil

	from := f.CurrentDuty()
	if from == target || dur <= 0 {
		err := f.write(target)
		f.mu.Unlock()
		if err != nil {
			return err
		}
		return prevErr
	}

	rampCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	go f.run(rampCtx, from, target, dur, done)
	f.mu.Unlock()

	if prevErr != nil {
		return fmt.Errorf("previous ramp: %w", prevErr)
	}
	if !wait {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.lastErr
	f.lastErr = nil
	return err
}

func (f *softFader) run(ctx context.Context, from, target int, dur time.Duration, done chan struct{}) {
	defer close(done)

	steps := int(dur / f.step)
	if steps < 1 {
		steps = 1
	}
	ticker := time.NewTicker(dur / time.Duration(steps))
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		duty := from + (target-from)*i/steps
		if err := f.write(duty); err != nil {
			f.mu.Lock()
			f.lastErr = err
			f.mu.Unlock()
			return
		}
	}
}

func (f *softFader) write(duty int) error {
	if err := f.out.SetDuty(duty); err != nil {
		return fmt.Errorf("set duty %d: %w", duty, err)
	}
	f.current.Store(int64(duty))
	return nil
}

// stopLocked cancels the ramp in flight and waits for its goroutine.
func (f *softFader) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	done := f.done
	f.cancel = nil
	f.done = nil

	// run takes f.mu only to record errors; release it while waiting.
	f.mu.Unlock()
	<-done
	f.mu.Lock()
}

// Close stops any ramp and parks the output at zero.
func (f *softFader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	return f.write(0)
}
