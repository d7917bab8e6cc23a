package response

import (
	"strconv"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/compression"
	"github.com/WhileEndless/go-kenuts/pkg/headers"
	"github.com/WhileEndless/go-kenuts/pkg/version"
)

// Status codes the bundled server emits
const (
	StatusOK               = 200
	StatusBadRequest       = 400
	StatusMethodNotAllowed = 405
	StatusTooManyRequests  = 429
)

var statusText = map[int]string{
	StatusOK:               "OK",
	StatusBadRequest:       "Bad Request",
	StatusMethodNotAllowed: "Method Not Allowed",
	StatusTooManyRequests:  "Too Many Requests",
}

// StatusText returns the reason phrase for a status code
func StatusText(code int) string {
	return statusText[code]
}

// Response represents a decoded KENUTS response
type Response struct {
	Raw         []byte                  // Terminal buffer exactly as received
	HeaderBlock []byte                  // Everything before the first separator
	StatusLine  string                  // First header line when it is a ZG/ status line
	Version     string                  // Protocol version from the status line
	StatusCode  int                     // Status code from the status line (0 when absent)
	StatusText  string                  // Reason phrase from the status line
	Headers     *headers.OrderedHeaders // Headers with preserved order
	Body        []byte                  // Everything after the first separator, unmodified
}

// NewResponse creates a new Response instance
func NewResponse() *Response {
	return &Response{
		Headers: headers.NewOrderedHeaders(),
	}
}

// New creates a response with a status line for the bundled server
func New(code int) *Response {
	resp := NewResponse()
	resp.Version = version.Protocol
	resp.StatusCode = code
	resp.StatusText = StatusText(code)
	return resp
}

// Clone creates a deep copy of the response
func (r *Response) Clone() *Response {
	clone := &Response{
		StatusLine: r.StatusLine,
		Version:    r.Version,
		StatusCode: r.StatusCode,
		StatusText: r.StatusText,
		Headers:    r.Headers.Clone(),
	}
	clone.Raw = append([]byte(nil), r.Raw...)
	clone.HeaderBlock = append([]byte(nil), r.HeaderBlock...)
	clone.Body = append([]byte(nil), r.Body...)
	return clone
}

// BodyString returns the body as text
func (r *Response) BodyString() string {
	return string(r.Body)
}

// GetContentLength returns the Content-Length header value as int, -1 when absent or invalid
func (r *Response) GetContentLength() int {
	value := strings.TrimSpace(r.Headers.Get("Content-Length"))
	if value == "" {
		return -1
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// GetContentType returns the Content-Type header value
func (r *Response) GetContentType() string {
	return r.Headers.Get("Content-Type")
}

// GetContentEncoding returns the Content-Encoding header value
func (r *Response) GetContentEncoding() string {
	return r.Headers.Get("Content-Encoding")
}

// IsTruncated reports whether the body is shorter than an advertised Content-Length
func (r *Response) IsTruncated() bool {
	n := r.GetContentLength()
	return n >= 0 && len(r.Body) < n
}

// IsSuccessful returns true if the response has a 2xx status code.
// Responses without a status line count as successful.
func (r *Response) IsSuccessful() bool {
	return r.StatusCode == 0 || (r.StatusCode >= 200 && r.StatusCode < 300)
}

// DecodedBody returns the body decompressed according to Content-Encoding
func (r *Response) DecodedBody() ([]byte, error) {
	ct := compression.DetectCompression(r.GetContentEncoding())
	return compression.Decompress(r.Body, ct)
}
