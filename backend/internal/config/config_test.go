package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"HOST", "PORT", "KEEPALIVE_INTERVAL", "KEEPALIVE_TIMEOUT", "KEY_ROOM_TTL",
		"MAX_MESSAGE_BYTES", "SEND_QUEUE_SIZE", "TRUST_FORWARDED_FOR", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":3000" {
		t.Fatalf("Addr = %q, want :3000", cfg.Addr())
	}
	if cfg.KeepaliveInterval != 30*time.Second || cfg.KeepaliveTimeout != 60*time.Second {
		t.Fatalf("keepalive = %v/%v, want 30s/60s", cfg.KeepaliveInterval, cfg.KeepaliveTimeout)
	}
	if cfg.KeyRoomTTL != 10*time.Minute {
		t.Fatalf("KeyRoomTTL = %v, want 10m", cfg.KeyRoomTTL)
	}
	if !cfg.TrustForwardedFor {
		t.Fatal("TrustForwardedFor should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("KEEPALIVE_INTERVAL", "5s")
	t.Setenv("KEEPALIVE_TIMEOUT", "")
	t.Setenv("KEY_ROOM_TTL", "1m")
	t.Setenv("TRUST_FORWARDED_FOR", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.KeepaliveTimeout != 10*time.Second {
		t.Fatalf("KeepaliveTimeout = %v, want twice the interval", cfg.KeepaliveTimeout)
	}
	if cfg.TrustForwardedFor {
		t.Fatal("TrustForwardedFor = true, want false")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KEEPALIVE_INTERVAL", "30s")
	t.Setenv("KEEPALIVE_TIMEOUT", "10s")

	if _, err := Load(); !errors.Is(err, ErrInvalidKeepalive) {
		t.Fatalf("Load err = %v, want ErrInvalidKeepalive", err)
	}

	t.Setenv("KEEPALIVE_TIMEOUT", "")
	t.Setenv("SEND_QUEUE_SIZE", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a non-numeric SEND_QUEUE_SIZE")
	}
}
