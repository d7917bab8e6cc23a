package server

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Addr = " " }, "addr is required"},
		{"empty index", func(c *Config) { c.IndexFile = "" }, "index_file is required"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read_timeout"},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -1 }, "write_timeout"},
		{"no header lines", func(c *Config) { c.MaxHeaderLines = 0 }, "max_header_lines"},
		{"negative max conns", func(c *Config) { c.MaxConns = -1 }, "max_conns"},
		{"rate without burst", func(c *Config) { c.RateLimit = RateLimitConfig{RPS: 5} }, "rate_limit.burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("New() accepted an invalid config")
	}
}
