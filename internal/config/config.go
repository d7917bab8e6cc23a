// Package config loads the TOML files of the kenuts binaries onto their defaults.
// Only keys present in a file override a default.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/WhileEndless/go-kenuts/internal/server"
	"github.com/WhileEndless/go-kenuts/pkg/fetch"
)

// Client is the resolved configuration of the kenuts CLI
type Client struct {
	Fetch fetch.Options

	// Render selects the output form: "html", "decoded" or "text"
	Render string
}

// Daemon is the resolved configuration of kenutsd
type Daemon struct {
	Server server.Config

	// AdminAddr serves /healthz and /metrics; empty disables the admin endpoint
	AdminAddr string
}

type clientFile struct {
	ConnTimeout     string `toml:"conn_timeout"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	MaxResponseSize int64  `toml:"max_response_size"`
	ConnIP          string `toml:"conn_ip"`
	Strict          bool   `toml:"strict"`
	Decompress      bool   `toml:"decompress"`
	Language        string `toml:"language"`
	Render          string `toml:"render"`
}

type rateLimitFile struct {
	RPS     float64 `toml:"rps"`
	Burst   int     `toml:"burst"`
	IdleTTL string  `toml:"idle_ttl"`
}

type daemonFile struct {
	Name            string        `toml:"name"`
	Addr            string        `toml:"addr"`
	AdminAddr       string        `toml:"admin_addr"`
	ReadTimeout     string        `toml:"read_timeout"`
	WriteTimeout    string        `toml:"write_timeout"`
	MaxHeaderLines  int           `toml:"max_header_lines"`
	IndexFile       string        `toml:"index_file"`
	ShutdownTimeout string        `toml:"shutdown_timeout"`
	WatchIndex      bool          `toml:"watch_index"`
	MaxConns        int           `toml:"max_conns"`
	Compression     bool          `toml:"compression"`
	RateLimit       rateLimitFile `toml:"rate_limit"`
}

var renderModes = map[string]bool{"html": true, "decoded": true, "text": true}

func DefaultClient() Client {
	return Client{Render: "decoded"}
}

func DefaultDaemon() Daemon {
	return Daemon{
		Server:    server.DefaultConfig(),
		AdminAddr: "127.0.0.1:9469",
	}
}

// LoadClient reads path onto DefaultClient. An empty path returns the defaults.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if path == "" {
		return cfg, nil
	}

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Client{}, fmt.Errorf("load client config: %w", err)
	}
	if err := undecoded(meta); err != nil {
		return Client{}, err
	}

	t := &cfg.Fetch.Transport
	if meta.IsDefined("conn_timeout") {
		if err := parseDuration("conn_timeout", raw.ConnTimeout, &t.ConnTimeout); err != nil {
			return Client{}, err
		}
	}
	if meta.IsDefined("read_timeout") {
		if err := parseDuration("read_timeout", raw.ReadTimeout, &t.ReadTimeout); err != nil {
			return Client{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if err := parseDuration("write_timeout", raw.WriteTimeout, &t.WriteTimeout); err != nil {
			return Client{}, err
		}
	}

	if meta.IsDefined("max_response_size") {
		if raw.MaxResponseSize <= 0 {
			return Client{}, fmt.Errorf("max_response_size must be positive, got %d", raw.MaxResponseSize)
		}
		t.MaxResponseSize = raw.MaxResponseSize
	}
	if meta.IsDefined("conn_ip") {
		t.ConnIP = strings.TrimSpace(raw.ConnIP)
	}
	if meta.IsDefined("strict") {
		cfg.Fetch.StrictResponses = raw.Strict
	}
	if meta.IsDefined("decompress") {
		cfg.Fetch.Decompress = raw.Decompress
	}
	if meta.IsDefined("language") {
		cfg.Fetch.Language = fetch.ParseLanguage(strings.TrimSpace(raw.Language))
	}
	if meta.IsDefined("render") {
		mode := strings.ToLower(strings.TrimSpace(raw.Render))
		if !renderModes[mode] {
			return Client{}, fmt.Errorf("render must be html, decoded or text, got %q", raw.Render)
		}
		cfg.Render = mode
	}

	return cfg, nil
}

// LoadDaemon reads path onto DefaultDaemon and validates the result
func LoadDaemon(path string) (Daemon, error) {
	cfg := DefaultDaemon()
	if path != "" {
		if err := overlayDaemon(path, &cfg); err != nil {
			return Daemon{}, err
		}
	}

	if err := cfg.Server.Validate(); err != nil {
		return Daemon{}, fmt.Errorf("validate daemon config: %w", err)
	}
	return cfg, nil
}

func overlayDaemon(path string, cfg *Daemon) error {
	var raw daemonFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	if err := undecoded(meta); err != nil {
		return err
	}

	s := &cfg.Server
	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			s.Name = name
		}
	}
	if meta.IsDefined("addr") {
		s.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("read_timeout") {
		if err := parseDuration("read_timeout", raw.ReadTimeout, &s.ReadTimeout); err != nil {
			return err
		}
	}
	if meta.IsDefined("write_timeout") {
		if err := parseDuration("write_timeout", raw.WriteTimeout, &s.WriteTimeout); err != nil {
			return err
		}
	}
	if meta.IsDefined("shutdown_timeout") {
		if err := parseDuration("shutdown_timeout", raw.ShutdownTimeout, &s.ShutdownTimeout); err != nil {
			return err
		}
	}
	if meta.IsDefined("max_header_lines") {
		s.MaxHeaderLines = raw.MaxHeaderLines
	}
	if meta.IsDefined("index_file") {
		s.IndexFile = strings.TrimSpace(raw.IndexFile)
	}
	if meta.IsDefined("watch_index") {
		s.WatchIndex = raw.WatchIndex
	}
	if meta.IsDefined("max_conns") {
		s.MaxConns = raw.MaxConns
	}
	if meta.IsDefined("compression") {
		s.Compression = raw.Compression
	}
	if meta.IsDefined("rate_limit", "rps") {
		s.RateLimit.RPS = raw.RateLimit.RPS
	}
	if meta.IsDefined("rate_limit", "burst") {
		s.RateLimit.Burst = raw.RateLimit.Burst
	}
	if meta.IsDefined("rate_limit", "idle_ttl") {
		if err := parseDuration("rate_limit.idle_ttl", raw.RateLimit.IdleTTL, &s.RateLimit.IdleTTL); err != nil {
			return err
		}
	}

	return nil
}

func parseDuration(key, raw string, dst *time.Duration) error {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

// undecoded rejects unknown keys so typos do not silently fall back to defaults
func undecoded(meta toml.MetaData) error {
	keys := meta.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown config keys: %s", strings.Join(names, ", "))
}
