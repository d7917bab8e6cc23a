// Package utils holds diagnostics for KENUTS frames that go beyond parsing.
package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/compression"
	"github.com/WhileEndless/go-kenuts/pkg/headers"
	"github.com/WhileEndless/go-kenuts/pkg/request"
	"github.com/WhileEndless/go-kenuts/pkg/response"
)

// ValidationResult contains validation results.
// Warnings never make a frame unusable; Errors do.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Warnings: make([]string, 0),
		Errors:   make([]string, 0),
	}
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// ValidateRequest checks a parsed request against the canonical framing
func ValidateRequest(req *request.Request) *ValidationResult {
	result := newResult()

	switch req.Method {
	case "":
		result.fail("method is empty")
	case request.MethodGet, request.MethodHead:
	default:
		result.warn("unsupported method: %s", req.Method)
	}

	if !strings.HasPrefix(req.Target, "/") {
		result.fail("target does not start with /: %q", req.Target)
	}

	if !strings.HasPrefix(strings.ToUpper(req.Version), "ZG/") {
		result.warn("unexpected protocol version: %s", req.Version)
	}

	if req.Framing != request.FramingCanonical {
		result.warn("%s framing", req.Framing)
	}

	if mode := req.Mode(); mode == "" {
		result.warn("missing %s header", request.ModeHeader)
	} else if !strings.EqualFold(mode, request.ModeHTML) {
		result.warn("unknown %s: %s", request.ModeHeader, mode)
	}

	validateHeaders(req.Headers.All(), result)
	return result
}

// ValidateResponse checks a decoded response for inconsistencies a client may trip over
func ValidateResponse(resp *response.Response) *ValidationResult {
	result := newResult()

	if resp.StatusLine == "" {
		result.warn("no status line")
	} else {
		if resp.StatusCode < 100 || resp.StatusCode > 599 {
			result.fail("invalid status code: %d", resp.StatusCode)
		}
		if !strings.HasPrefix(strings.ToUpper(resp.Version), "ZG/") {
			result.warn("unexpected protocol version: %s", resp.Version)
		}
	}

	validateHeaders(resp.Headers.All(), result)

	if raw := resp.Headers.Get("Content-Length"); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err != nil || n < 0 {
			result.warn("invalid Content-Length: %s", raw)
		} else if n != len(resp.Body) {
			result.warn("Content-Length mismatch: header says %d, body is %d bytes", n, len(resp.Body))
		}
	}

	if enc := resp.GetContentEncoding(); enc != "" && !compression.IsSupported(enc) {
		result.warn("unsupported Content-Encoding: %s", enc)
	}

	return result
}

// validateHeaders validates common header issues
func validateHeaders(headerList []headers.Header, result *ValidationResult) {
	seen := make(map[string]int)

	for _, header := range headerList {
		switch header.Name {
		case headers.MalformedHeaderName:
			result.warn("malformed header line: %q", header.Value)
			continue
		case headers.EmptyHeaderName:
			result.warn("empty header name")
			continue
		}

		lower := strings.ToLower(header.Name)
		seen[lower]++
		if seen[lower] == 2 {
			result.warn("duplicate header: %s", header.Name)
		}

		if strings.ContainsAny(header.Name, " \t") {
			result.warn("whitespace in header name: %q", header.Name)
		}
		if strings.ContainsAny(header.Name, "\r\n") || strings.ContainsAny(header.Value, "\r\n") {
			result.fail("newline inside header %s", header.Name)
		}
	}
}
