package main

import (
	"errors"
	"testing"
	"time"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*fakeI2C)(nil)

var errNack = errors.New("nack")

// fakeI2C emulates a 256-byte EEPROM with one-byte word addresses. After each
// write it NACKs busyPolls address polls.
type fakeI2C struct {
	addr     uint16
	mem      [256]byte
	pageSize int

	busyPolls int
	busy      int
	writes    [][]byte
	failWrite bool
}

func newFakeEEPROM() *fakeI2C {
	f := &fakeI2C{addr: defaultEEPROMAddr, pageSize: defaultEEPROMPageSize}
	for i := range f.mem {
		f.mem[i] = erasedByte
	}
	return f
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if addr != f.addr {
		return errNack
	}
	if f.busy > 0 {
		f.busy--
		return errNack
	}
	if len(w) == 0 {
		return errors.New("no word address")
	}
	off := int(w[0])

	if len(r) > 0 {
		for i := range r {
			r[i] = f.mem[(off+i)%len(f.mem)]
		}
		return nil
	}

	data := w[1:]
	if len(data) == 0 {
		// Address poll.
		return nil
	}
	if f.failWrite {
		return errNack
	}
	f.writes = append(f.writes, append([]byte(nil), w...))
	page := off / f.pageSize * f.pageSize
	for i, b := range data {
		// The address counter wraps inside the page.
		f.mem[page+(off-page+i)%f.pageSize] = b
	}
	f.busy = f.busyPolls
	return nil
}

// fakeClock advances on every sleep.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) sleep(d time.Duration) { c.t = c.t.Add(d) }

func openTestEEPROM(t *testing.T, bus *fakeI2C) (*eepromStore, *fakeClock) {
	t.Helper()
	st, err := openEEPROMStore(bus, defaultEEPROMAddr, storeSize, defaultEEPROMPageSize)
	if err != nil {
		t.Fatalf("openEEPROMStore: %v", err)
	}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	st.now = clk.now
	st.sleep = clk.sleep
	return st, clk
}

func TestEEPROMStore_ErasedDeviceLoadsDefaults(t *testing.T) {
	bus := newFakeEEPROM()
	st, _ := openTestEEPROM(t, bus)

	s, err := LoadSettings(st, testLogger())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.MaxDutyPercent != 50 || s.SpeedThreshold != 15 {
		t.Fatalf("expected defaults, got %+v", s)
	}
	for off, b := range defaultRecord {
		if bus.mem[off] != b {
			t.Fatalf("device byte %d: got %d, want %d", off, bus.mem[off], b)
		}
	}
	if len(bus.writes) != 1 {
		t.Fatalf("expected one page write for bytes 0..4, got %d", len(bus.writes))
	}
}

func TestEEPROMStore_CommitSplitsAtPageBoundary(t *testing.T) {
	bus := newFakeEEPROM()
	st, _ := openTestEEPROM(t, bus)

	for off := 6; off < 10; off++ {
		if err := st.SetByteAt(off, byte(off)); err != nil {
			t.Fatalf("SetByteAt: %v", err)
		}
	}
	if err := st.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if len(bus.writes) != 2 {
		t.Fatalf("expected 2 writes across the page boundary, got %d", len(bus.writes))
	}
	if bus.writes[0][0] != 6 || len(bus.writes[0]) != 3 {
		t.Fatalf("unexpected first write %v", bus.writes[0])
	}
	if bus.writes[1][0] != 8 || len(bus.writes[1]) != 3 {
		t.Fatalf("unexpected second write %v", bus.writes[1])
	}
	for off := 6; off < 10; off++ {
		if bus.mem[off] != byte(off) {
			t.Fatalf("device byte %d: got %d", off, bus.mem[off])
		}
	}
}

func TestEEPROMStore_UnchangedBytesAreNotWritten(t *testing.T) {
	bus := newFakeEEPROM()
	st, _ := openTestEEPROM(t, bus)

	if err := st.SetByteAt(3, erasedByte); err != nil {
		t.Fatalf("SetByteAt: %v", err)
	}
	if err := st.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(bus.writes) != 0 {
		t.Fatalf("expected no writes, got %v", bus.writes)
	}
}

func TestEEPROMStore_WaitsForWriteCycle(t *testing.T) {
	bus := newFakeEEPROM()
	bus.busyPolls = 3
	st, _ := openTestEEPROM(t, bus)

	if err := st.SetByteAt(0, 7); err != nil {
		t.Fatalf("SetByteAt: %v", err)
	}
	if err := st.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if bus.busy != 0 {
		t.Fatalf("expected all busy polls consumed, %d left", bus.busy)
	}
}

func TestEEPROMStore_WriteCycleTimeout(t *testing.T) {
	bus := newFakeEEPROM()
	bus.busyPolls = 1000
	st, _ := openTestEEPROM(t, bus)

	if err := st.SetByteAt(0, 7); err != nil {
		t.Fatalf("SetByteAt: %v", err)
	}
	if err := st.Commit(); err == nil {
		t.Fatalf("expected write cycle timeout")
	}
	// The byte stays dirty so the next commit retries it.
	if !st.dirty[0] {
		t.Fatalf("expected byte 0 still dirty after a failed commit")
	}
}

func TestEEPROMStore_WriteFailureIsReported(t *testing.T) {
	bus := newFakeEEPROM()
	bus.failWrite = true
	st, _ := openTestEEPROM(t, bus)

	err := SaveSettings(st, decodeSettings(defaultRecord))
	if !errors.Is(err, errNack) {
		t.Fatalf("expected nack error, got %v", err)
	}
}

func TestEEPROMStore_OpenFailsOnMissingDevice(t *testing.T) {
	bus := newFakeEEPROM()
	if _, err := openEEPROMStore(bus, 0x51, storeSize, defaultEEPROMPageSize); err == nil {
		t.Fatalf("expected error for an absent device")
	}
}
