package request

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/WhileEndless/go-kenuts/pkg/headers"
	"github.com/WhileEndless/go-kenuts/pkg/version"
)

// MaxLineLength bounds a single request or header line read by ReadRequest
const MaxLineLength = 8 << 10

// Parse parses a complete raw request frame with fault tolerance
func Parse(data []byte) (*Request, error) {
	return parse(data, 0)
}

// ReadRequest reads one request frame from r, stopping at the empty line that ends the headers.
// maxHeaderLines bounds the header section (0 means unlimited).
func ReadRequest(r *bufio.Reader, maxHeaderLines int) (*Request, error) {
	var buf bytes.Buffer
	lines := 0

	for {
		line, err := readLine(r)
		buf.Write(line)
		if len(line) > MaxLineLength {
			return nil, errors.NewError(errors.ErrorTypeMalformedHeader,
				"line too long", "readRequest", line[:MaxLineLength])
		}
		if err != nil {
			// A frame cut short still gets parsed once the request line is complete
			if lines > 0 {
				break
			}
			return nil, err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			if lines == 0 {
				// Leading blank lines are skipped
				buf.Reset()
				continue
			}
			break
		}

		lines++
		if maxHeaderLines > 0 && lines > maxHeaderLines+1 {
			return nil, errors.NewError(errors.ErrorTypeMalformedHeader,
				"too many header lines", "readRequest", buf.Bytes())
		}
	}

	return parse(buf.Bytes(), maxHeaderLines)
}

// readLine reads through the next newline but stops collecting once the
// line outgrows MaxLineLength, so a peer cannot make it buffer without bound
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineLength || err != bufio.ErrBufferFull {
			return line, err
		}
	}
}

func parse(data []byte, maxHeaderLines int) (*Request, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewError(errors.ErrorTypeInvalidFormat,
			"empty request data", "parse", data)
	}

	req := NewRequest()
	req.Raw = make([]byte, len(data))
	copy(req.Raw, data)

	requestLineEnd := 0
	for requestLineEnd < len(data) && data[requestLineEnd] != '\n' && data[requestLineEnd] != '\r' {
		requestLineEnd++
	}

	if err := req.parseRequestLine(string(data[:requestLineEnd])); err != nil {
		return nil, err
	}

	headerStart := requestLineEnd
	if headerStart < len(data) && data[headerStart] == '\r' {
		headerStart++
	}
	if headerStart < len(data) && data[headerStart] == '\n' {
		headerStart++
	}

	parsed, err := headers.ParseHeadersLimit(data[headerStart:], maxHeaderLines)
	if err != nil {
		return nil, err
	}
	req.Headers = parsed

	return req, nil
}

// parseRequestLine accepts the canonical, legacy and bare request line layouts
func (r *Request) parseRequestLine(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return errors.NewError(errors.ErrorTypeInvalidFormat,
			"no request line found", "parseRequestLine", []byte(line))
	}

	r.Framing = FramingBare
	if strings.EqualFold(parts[0], ProtocolToken) {
		r.Framing = FramingCanonical
		parts = parts[1:]
		if len(parts) == 0 {
			return errors.NewError(errors.ErrorTypeInvalidMethod,
				"missing method", "parseRequestLine", []byte(line))
		}
	}

	r.Method = strings.ToUpper(parts[0])
	r.Target = "/"
	r.Version = version.Protocol

	rest := parts[1:]
	switch {
	case len(rest) == 0:
		if r.Framing == FramingCanonical {
			r.Framing = FramingLegacy
		}
	case isVersionToken(rest[0]):
		// "KENUTS GET ZG/1.0": no path on the wire
		r.Version = rest[0]
		if r.Framing == FramingCanonical {
			r.Framing = FramingLegacy
		}
	default:
		r.Target = rest[0]
		if len(rest) >= 2 {
			r.Version = rest[1]
		}
	}

	return nil
}

func isVersionToken(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), "ZG/")
}
