package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Debug {
		t.Error("debug should default to off")
	}
	if cfg.LogFormat != "human" {
		t.Errorf("default format = %q, want human", cfg.LogFormat)
	}
	if cfg.LogFile != "" {
		t.Errorf("default log file = %q, want empty", cfg.LogFile)
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"human", "json"} {
		cfg := DefaultConfig()
		cfg.LogFormat = format
		log, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		log.Debugw("below default level, discarded")
		log.Sync()
	}
}

func TestNewWithFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	cfg.LogFile = filepath.Join(t.TempDir(), "nested", "out.log")

	log, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	log.Infow("file sink check")
	log.Sync()

	if _, err := os.Stat(cfg.LogFile); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestNewDebugLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	log, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	log.Debugw("debug enabled")
	log.Sync()
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Infow("discarded", "key", "value")
	log.Errorw("also discarded")
}
