//go:build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// fileStore keeps an EEPROM image in a regular file. The image is read once at
// open; writes go to the cached copy and Commit writes it back with pwrite and
// fdatasync. An exclusive flock guards against two daemons sharing one image.
type fileStore struct {
	mu    sync.Mutex
	f     *os.File
	buf   []byte
	dirty bool
}

func openFileStore(path string, size int) (*fileStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid store size %d", size)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock store %s: %w", path, err)
	}

	buf := make([]byte, size)
	n, err := f.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}
	// A short or new image reads as erased cells.
	for i := n; i < size; i++ {
		buf[i] = erasedByte
	}

	return &fileStore{f: f, buf: buf}, nil
}

func (s *fileStore) ByteAt(off int) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off >= len(s.buf) {
		return 0, fmt.Errorf("offset %d out of range [0,%d)", off, len(s.buf))
	}
	return s.buf[off], nil
}

func (s *fileStore) SetByteAt(off int, b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off >= len(s.buf) {
		return fmt.Errorf("offset %d out of range [0,%d)", off, len(s.buf))
	}
	if s.buf[off] != b {
		s.buf[off] = b
		s.dirty = true
	}
	return nil
}

func (s *fileStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return os.ErrClosed
	}
	if !s.dirty {
		return nil
	}

	fd := int(s.f.Fd())
	n, err := unix.Pwrite(fd, s.buf, 0)
	if err != nil {
		return fmt.Errorf("pwrite: %w", err)
	}
	if n != len(s.buf) {
		return fmt.Errorf("pwrite: short write %d/%d", n, len(s.buf))
	}
	if err := unix.Fdatasync(fd); err != nil {
		return fmt.Errorf("fdatasync: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	fd := int(s.f.Fd())
	err := multierr.Combine(
		unix.Flock(fd, unix.LOCK_UN),
		s.f.Close(),
	)
	s.f = nil
	return err
}
