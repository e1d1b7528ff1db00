//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each epoll_wait so cancellation is noticed.
const epollWaitMS = 200

// readInputEventsEpoll reads from multiple input devices with one epoll
// instance and one goroutine. Each event is tagged with the index of its file.
// It returns when ctx is canceled or a device fails.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- deviceEvent) error {
	if len(files) == 0 {
		return errors.New("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToIndex := make(map[int]int, len(files))
	for i, f := range files {
		fd := int(f.Fd())
		fdToIndex[fd] = i

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			idx := fdToIndex[fd]
			f := files[idx]

			// Any device error is fatal; the daemon cannot run without its encoders.
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s", f.Name())
			}

			if _, err := f.Read(buf); err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}

			reader.Reset(buf)
			var ev inputEvent
			if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
				continue
			}

			select {
			case events <- deviceEvent{Device: idx, inputEvent: ev}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// runEncoderInputs opens the evdev devices, reads them with epoll and routes
// relative motion into the matching counters. counters[i] receives devices[i].
func runEncoderInputs(ctx context.Context, devices []string, counters []*encoderCounter, logger *slog.Logger) error {
	if len(devices) != len(counters) {
		return fmt.Errorf("have %d devices for %d counters", len(devices), len(counters))
	}

	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, path := range devices {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input device %s: %w", path, err)
		}
		files = append(files, f)
	}
	logger.Info("encoder inputs open", "devices", devices)

	events := make(chan deviceEvent, 64)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readInputEventsEpoll(ctx, files, events)
	}()

	for {
		select {
		case err := <-readErr:
			return err
		case ev := <-events:
			applyEncoderEvent(counters[ev.Device], ev.inputEvent)
		}
	}
}
