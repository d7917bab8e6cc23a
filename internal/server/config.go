package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RateLimitConfig bounds requests per peer IP. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

// Config holds server configuration
type Config struct {
	// Name labels metrics and log lines
	Name string

	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderLines  int
	IndexFile       string
	ShutdownTimeout time.Duration

	// WatchIndex reloads IndexFile whenever it changes on disk
	WatchIndex bool

	// MaxConns caps concurrently handled connections (0 means unlimited)
	MaxConns int

	RateLimit RateLimitConfig

	// Compression encodes bodies when the request advertises Accept-Encoding
	Compression bool

	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Name:            "kenutsd",
		Addr:            ":6969",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxHeaderLines:  200,
		IndexFile:       filepath.Join(".", "index.html"),
		ShutdownTimeout: 5 * time.Second,
		WatchIndex:      true,
		RateLimit: RateLimitConfig{
			Burst:   20,
			IdleTTL: 15 * time.Minute,
		},
	}
}

// Validate rejects configurations the server cannot run with
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if strings.TrimSpace(c.IndexFile) == "" {
		errs = append(errs, errors.New("index_file is required"))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write_timeout must be positive, got %s", c.WriteTimeout))
	}
	if c.MaxHeaderLines <= 0 {
		errs = append(errs, fmt.Errorf("max_header_lines must be positive, got %d", c.MaxHeaderLines))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must not be negative, got %s", c.ShutdownTimeout))
	}
	if c.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be positive when rate limiting, got %d", c.RateLimit.Burst))
	}

	return errors.Join(errs...)
}
