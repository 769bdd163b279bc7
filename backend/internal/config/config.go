// Package config loads the relay server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultPort              = "3000"
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultKeepaliveTimeout  = 2 * DefaultKeepaliveInterval
	DefaultKeyRoomTTL        = 10 * time.Minute
	DefaultMaxMessageBytes   = 64 * 1024
	DefaultSendQueueSize     = 256
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

var (
	ErrInvalidKeepalive = errors.New("keepalive timeout must be greater than the interval")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidSize      = errors.New("size must be positive")
)

// Config holds the server settings.
type Config struct {
	Host string
	Port string

	// KeepaliveInterval is the period between pings sent to a peer.
	KeepaliveInterval time.Duration
	// KeepaliveTimeout is the silence after which a peer is removed.
	KeepaliveTimeout time.Duration
	// KeyRoomTTL is how long a pairing key stays valid.
	KeyRoomTTL time.Duration

	MaxMessageBytes   int64
	SendQueueSize     int
	TrustForwardedFor bool

	LogLevel  string
	LogFormat string
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate reports settings the relay cannot run with.
func (c *Config) Validate() error {
	if c.KeepaliveInterval <= 0 {
		return fmt.Errorf("KEEPALIVE_INTERVAL: %w", ErrInvalidDuration)
	}
	if c.KeepaliveTimeout <= c.KeepaliveInterval {
		return ErrInvalidKeepalive
	}
	if c.KeyRoomTTL <= 0 {
		return fmt.Errorf("KEY_ROOM_TTL: %w", ErrInvalidDuration)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("MAX_MESSAGE_BYTES: %w", ErrInvalidSize)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("SEND_QUEUE_SIZE: %w", ErrInvalidSize)
	}
	return nil
}

// Load reads configuration with the following priority:
// 1. Environment variables - highest priority
// 2. A .env file in the working directory, when present
// 3. Hardcoded defaults - lowest priority
func Load() (*Config, error) {
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := &Config{
		Host:      os.Getenv("HOST"),
		Port:      getEnv("PORT", DefaultPort),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),
	}

	var err error
	if cfg.KeepaliveInterval, err = getEnvDuration("KEEPALIVE_INTERVAL", DefaultKeepaliveInterval); err != nil {
		return nil, err
	}
	if cfg.KeepaliveTimeout, err = getEnvDuration("KEEPALIVE_TIMEOUT", 2*cfg.KeepaliveInterval); err != nil {
		return nil, err
	}
	if cfg.KeyRoomTTL, err = getEnvDuration("KEY_ROOM_TTL", DefaultKeyRoomTTL); err != nil {
		return nil, err
	}
	size, err := getEnvInt("MAX_MESSAGE_BYTES", DefaultMaxMessageBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageBytes = int64(size)
	if cfg.SendQueueSize, err = getEnvInt("SEND_QUEUE_SIZE", DefaultSendQueueSize); err != nil {
		return nil, err
	}
	if cfg.TrustForwardedFor, err = getEnvBool("TRUST_FORWARDED_FOR", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
