package main

import (
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// AT24C0x-style EEPROM defaults.
const (
	defaultEEPROMAddr     = 0x50
	defaultEEPROMPageSize = 8
	eepromWriteCycle      = 5 * time.Millisecond
	eepromPollTimeout     = 20 * time.Millisecond
	eepromPollInterval    = 1 * time.Millisecond
)

// eepromStore is a ByteStore backed by a small I2C EEPROM with one-byte word
// addresses (AT24C01/02). The whole region is cached at open; Commit writes
// dirty bytes back in page-sized chunks and polls for the write cycle to end.
type eepromStore struct {
	mu       sync.Mutex
	bus      drivers.I2C
	addr     uint16
	pageSize int
	buf      []byte
	dirty    []bool

	sleep func(time.Duration)
	now   func() time.Time
}

func openEEPROMStore(bus drivers.I2C, addr uint16, size, pageSize int) (*eepromStore, error) {
	if size <= 0 || size > 256 {
		return nil, fmt.Errorf("invalid eeprom size %d", size)
	}
	if pageSize <= 0 {
		pageSize = defaultEEPROMPageSize
	}

	buf := make([]byte, size)
	if err := bus.Tx(addr, []byte{0x00}, buf); err != nil {
		return nil, fmt.Errorf("eeprom read at 0x%02x: %w", addr, err)
	}

	return &eepromStore{
		bus:      bus,
		addr:     addr,
		pageSize: pageSize,
		buf:      buf,
		dirty:    make([]bool, size),
		sleep:    time.Sleep,
		now:      time.Now,
	}, nil
}

func (e *eepromStore) ByteAt(off int) (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= len(e.buf) {
		return 0, fmt.Errorf("offset %d out of range [0,%d)", off, len(e.buf))
	}
	return e.buf[off], nil
}

func (e *eepromStore) SetByteAt(off int, b byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= len(e.buf) {
		return fmt.Errorf("offset %d out of range [0,%d)", off, len(e.buf))
	}
	if e.buf[off] != b {
		e.buf[off] = b
		e.dirty[off] = true
	}
	return nil
}

// Commit writes every dirty run. A run never crosses a page boundary since the
// device wraps the address counter inside the page.
func (e *eepromStore) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for off := 0; off < len(e.buf); {
		if !e.dirty[off] {
			off++
			continue
		}
		end := off
		pageEnd := (off/e.pageSize + 1) * e.pageSize
		for end < len(e.buf) && end < pageEnd && e.dirty[end] {
			end++
		}

		w := make([]byte, 0, 1+end-off)
		w = append(w, byte(off))
		w = append(w, e.buf[off:end]...)
		if err := e.bus.Tx(e.addr, w, nil); err != nil {
			return fmt.Errorf("eeprom page write at %d: %w", off, err)
		}
		if err := e.waitWriteCycle(); err != nil {
			return err
		}
		for i := off; i < end; i++ {
			e.dirty[i] = false
		}
		off = end
	}
	return nil
}

// waitWriteCycle polls the device until it acknowledges its address again.
func (e *eepromStore) waitWriteCycle() error {
	e.sleep(eepromWriteCycle)
	deadline := e.now().Add(eepromPollTimeout)
	for {
		err := e.bus.Tx(e.addr, []byte{0x00}, nil)
		if err == nil {
			return nil
		}
		if e.now().After(deadline) {
			return fmt.Errorf("eeprom write cycle timeout: %w", err)
		}
		e.sleep(eepromPollInterval)
	}
}
