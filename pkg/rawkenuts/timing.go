package rawkenuts

import (
	"strings"
	"time"
)

// Timing represents timing information for the phases of one exchange
type Timing struct {
	DNSLookup  time.Duration // Time spent on DNS resolution
	TCPConnect time.Duration // Time spent on TCP connection establishment
	TTFB       time.Duration // Time from sending the request to the first response byte
	Total      time.Duration // Total time from start until the peer closed
}

// String returns a human-readable representation of timing information
func (t *Timing) String() string {
	var b strings.Builder
	b.WriteString("Timing:\n")
	if t.DNSLookup > 0 {
		b.WriteString("  DNS Lookup: " + t.DNSLookup.String() + "\n")
	}
	if t.TCPConnect > 0 {
		b.WriteString("  TCP Connect: " + t.TCPConnect.String() + "\n")
	}
	if t.TTFB > 0 {
		b.WriteString("  Time to First Byte: " + t.TTFB.String() + "\n")
	}
	b.WriteString("  Total: " + t.Total.String())
	return b.String()
}
