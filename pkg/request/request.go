package request

import (
	"github.com/WhileEndless/go-kenuts/pkg/headers"
	"github.com/WhileEndless/go-kenuts/pkg/version"
)

const (
	// ProtocolToken opens every canonical request line
	ProtocolToken = "KENUTS"

	// MethodGet is the only method clients send
	MethodGet = "GET"

	// MethodHead is accepted by the server and answered without a body
	MethodHead = "HEAD"

	// ModeHeader names the rendering mode header
	ModeHeader = "ZG-Mode"

	// ModeHTML is the only rendering mode
	ModeHTML = "HTML"
)

// Framing identifies which request line layout a request arrived in
type Framing int

const (
	// FramingCanonical is "KENUTS GET <path> ZG/1.0"
	FramingCanonical Framing = iota
	// FramingLegacy is "KENUTS GET ZG/1.0", sent by clients that never carried a path
	FramingLegacy
	// FramingBare is "GET <path> ..." without the protocol token
	FramingBare
)

func (f Framing) String() string {
	switch f {
	case FramingCanonical:
		return "canonical"
	case FramingLegacy:
		return "legacy"
	case FramingBare:
		return "bare"
	default:
		return "unknown"
	}
}

// Request represents a KENUTS request
type Request struct {
	Method  string                  // GET or HEAD
	Target  string                  // Request path, "/" when absent
	Version string                  // Protocol version (ZG/1.0)
	Headers *headers.OrderedHeaders // Headers with preserved order
	Framing Framing                 // Request line layout (parsed requests only)
	Raw     []byte                  // Original raw request data (parsed requests only)
}

// NewRequest creates an empty Request instance
func NewRequest() *Request {
	return &Request{
		Version: version.Protocol,
		Headers: headers.NewOrderedHeaders(),
	}
}

// New creates the canonical GET request for path
func New(path string) *Request {
	if path == "" {
		path = "/"
	}

	req := NewRequest()
	req.Method = MethodGet
	req.Target = path
	req.Headers.Set(ModeHeader, ModeHTML)
	return req
}

// Clone creates a deep copy of the request
func (r *Request) Clone() *Request {
	clone := &Request{
		Method:  r.Method,
		Target:  r.Target,
		Version: r.Version,
		Framing: r.Framing,
		Headers: r.Headers.Clone(),
	}
	if r.Raw != nil {
		clone.Raw = make([]byte, len(r.Raw))
		copy(clone.Raw, r.Raw)
	}
	return clone
}

// Mode returns the ZG-Mode header value
func (r *Request) Mode() string {
	return r.Headers.Get(ModeHeader)
}

// AcceptEncoding returns the Accept-Encoding header value
func (r *Request) AcceptEncoding() string {
	return r.Headers.Get("Accept-Encoding")
}
