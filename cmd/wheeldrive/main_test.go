//go:build linux

package main

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig_SimExampleWithoutConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")
	backend, storage := backendSim, storageMemory
	o := FlagOverrides{Backend: &backend, StorageBackend: &storage}

	cfg, err := loadConfig(missing, false, o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Hardware.Backend != backendSim || cfg.Storage.Backend != storageMemory || cfg.Display.OLED {
		t.Fatalf("unexpected config %+v %+v %+v", cfg.Hardware, cfg.Storage, cfg.Display)
	}

	// A config file named on the command line must exist.
	if _, err := loadConfig(missing, true, o); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}
