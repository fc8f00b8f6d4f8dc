package config

import (
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	SetConfigDir(t.TempDir())
	defer SetConfigDir("")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Endpoint != defaultEndpoint {
		t.Fatalf("endpoint = %q, want %q", cfg.Server.Endpoint, defaultEndpoint)
	}
	if got := cfg.RetryDelay(); got != 3*time.Second {
		t.Fatalf("retry delay = %v, want 3s", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	SetConfigDir(t.TempDir())
	defer SetConfigDir("")

	cfg := DefaultConfig()
	cfg.Server.Endpoint = "ws://example.test:9000/ws"
	cfg.Server.RetryMS = 500
	cfg.Logging.Level = "debug"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Endpoint != cfg.Server.Endpoint {
		t.Fatalf("endpoint = %q, want %q", loaded.Server.Endpoint, cfg.Server.Endpoint)
	}
	if got := loaded.RetryDelay(); got != 500*time.Millisecond {
		t.Fatalf("retry delay = %v, want 500ms", got)
	}
	if loaded.Logging.Level != "debug" {
		t.Fatalf("log level = %q, want debug", loaded.Logging.Level)
	}
}

func TestLoadEmptyEndpointFallsBack(t *testing.T) {
	SetConfigDir(t.TempDir())
	defer SetConfigDir("")

	cfg := DefaultConfig()
	cfg.Server.Endpoint = "  "
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Endpoint != defaultEndpoint {
		t.Fatalf("endpoint = %q, want default", loaded.Server.Endpoint)
	}
}
