package main

import (
	"fmt"
	"sync"
)

// memStore is a ByteStore held in memory. It starts erased.
type memStore struct {
	mu        sync.Mutex
	buf       []byte
	committed []byte
	commits   int

	// commitErr, when set, is returned by Commit (used to exercise save failures).
	commitErr error
}

func newMemStore(size int) *memStore {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = erasedByte
	}
	committed := make([]byte, size)
	copy(committed, buf)
	return &memStore{buf: buf, committed: committed}
}

func (m *memStore) ByteAt(off int) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= len(m.buf) {
		return 0, fmt.Errorf("offset %d out of range [0,%d)", off, len(m.buf))
	}
	return m.buf[off], nil
}

func (m *memStore) SetByteAt(off int, b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= len(m.buf) {
		return fmt.Errorf("offset %d out of range [0,%d)", off, len(m.buf))
	}
	m.buf[off] = b
	return nil
}

func (m *memStore) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	copy(m.committed, m.buf)
	m.commits++
	return nil
}

// Committed returns a copy of the last committed image.
func (m *memStore) Committed() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.committed))
	copy(out, m.committed)
	return out
}
