package main

import (
	"fmt"
	"log/slog"
)

// ByteStore is byte-addressed persistent storage with an explicit commit.
// Writes are not durable until Commit returns nil.
type ByteStore interface {
	ByteAt(off int) (byte, error)
	SetByteAt(off int, b byte) error
	Commit() error
}

// Persisted record layout.
const (
	offMaxDuty   = 0
	offThreshold = 1
	offAccel     = 2
	offDecel     = 3
	offPolarity  = 4

	// storeSize is the size of the storage region reserved for the record.
	storeSize = 10

	// rampTimeScale narrows ramp times to fit a byte (4 ms resolution).
	rampTimeScale = 4

	// erasedByte is what never-written EEPROM cells read back as.
	erasedByte = 0xFF
)

// defaultRecord is written when storage has never been initialized.
var defaultRecord = [...]byte{
	offMaxDuty:   50,
	offThreshold: 15,
	offAccel:     75,
	offDecel:     50,
	offPolarity:  0,
}

// LoadSettings reads the persisted record. A polarity byte above 1 marks the
// storage as uninitialized; the default record is then written and committed
// before it is decoded, so the next load takes the normal path.
func LoadSettings(st ByteStore, logger *slog.Logger) (Settings, error) {
	pol, err := st.ByteAt(offPolarity)
	if err != nil {
		return Settings{}, fmt.Errorf("read polarity byte: %w", err)
	}

	if pol > 1 {
		logger.Warn("persisted settings invalid, writing defaults", "sentinel", pol)
		for off, b := range defaultRecord {
			if err := st.SetByteAt(off, b); err != nil {
				return Settings{}, fmt.Errorf("write default byte %d: %w", off, err)
			}
		}
		if err := st.Commit(); err != nil {
			return Settings{}, fmt.Errorf("commit defaults: %w", err)
		}
		return decodeSettings(defaultRecord), nil
	}

	var rec [len(defaultRecord)]byte
	for off := range rec {
		b, err := st.ByteAt(off)
		if err != nil {
			return Settings{}, fmt.Errorf("read byte %d: %w", off, err)
		}
		rec[off] = b
	}

	s := decodeSettings(rec)
	logger.Info("settings loaded",
		"max_duty_percent", s.MaxDutyPercent,
		"speed_threshold", s.SpeedThreshold,
		"accel_time_ms", s.AccelTimeMS,
		"decel_time_ms", s.DecelTimeMS,
		"reverse_polarity", s.ReversePolarity)
	return s, nil
}

// SaveSettings writes the persisted fields of s and commits. Ramp times are
// truncated to 4 ms resolution. The first failure is returned.
func SaveSettings(st ByteStore, s Settings) error {
	rec := encodeSettings(s)
	for off, b := range rec {
		if err := st.SetByteAt(off, b); err != nil {
			return fmt.Errorf("write byte %d: %w", off, err)
		}
	}
	if err := st.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

func encodeSettings(s Settings) [len(defaultRecord)]byte {
	var rec [len(defaultRecord)]byte
	rec[offMaxDuty] = byte(s.MaxDutyPercent)
	rec[offThreshold] = byte(s.SpeedThreshold)
	rec[offAccel] = byte(s.AccelTimeMS / rampTimeScale)
	rec[offDecel] = byte(s.DecelTimeMS / rampTimeScale)
	if s.ReversePolarity {
		rec[offPolarity] = 1
	}
	return rec
}

// decodeSettings is a mutation site and clamps like any other.
func decodeSettings(rec [len(defaultRecord)]byte) Settings {
	s := Settings{
		MaxDutyPercent:  int(rec[offMaxDuty]),
		SpeedThreshold:  int(rec[offThreshold]),
		AccelTimeMS:     int(rec[offAccel]) * rampTimeScale,
		DecelTimeMS:     int(rec[offDecel]) * rampTimeScale,
		ReversePolarity: rec[offPolarity] == 1,
	}
	s.Clamp()
	return s
}
