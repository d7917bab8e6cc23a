package rawkenuts

import (
	"time"
)

// Options represents configuration options for one KENUTS exchange
type Options struct {
	// ConnIP connects to a specific IP, bypassing DNS for the address host
	ConnIP string

	// Timeout options
	ConnTimeout  time.Duration // Connection timeout (default: 30s, negative disables)
	ReadTimeout  time.Duration // Whole-response read timeout (default: 30s, negative disables)
	WriteTimeout time.Duration // Request write timeout (default: 30s, negative disables)

	// MaxResponseSize bounds the terminal buffer (default: 16MB)
	MaxResponseSize int64
}

// SetDefaults sets default values for unspecified options
func (o *Options) SetDefaults() {
	if o.ConnTimeout == 0 {
		o.ConnTimeout = 30 * time.Second
	}

	if o.ReadTimeout == 0 {
		o.ReadTimeout = 30 * time.Second
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = 30 * time.Second
	}

	if o.MaxResponseSize == 0 {
		o.MaxResponseSize = 16 * 1024 * 1024
	}
}
