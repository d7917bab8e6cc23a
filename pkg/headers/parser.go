package headers

import (
	"bytes"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
)

const (
	// MalformedHeaderName is the name given to header lines without a colon
	MalformedHeaderName = "X-Malformed-Header"

	// EmptyHeaderName is the name given to header lines starting with a colon
	EmptyHeaderName = "X-Empty-Header-Name"
)

// ParseHeaders parses raw KENUTS headers with fault tolerance.
// Preserves order, original formatting, and line endings. Parsing stops at the first empty line.
func ParseHeaders(data []byte) (*OrderedHeaders, error) {
	return ParseHeadersLimit(data, 0)
}

// ParseHeadersLimit is ParseHeaders with an upper bound on header lines (0 means unlimited)
func ParseHeadersLimit(data []byte, maxLines int) (*OrderedHeaders, error) {
	headers := NewOrderedHeaders()

	// Walk the block line by line so every line keeps its own terminator
	for pos := 0; pos < len(data); {
		content, ending, next := scanLine(data, pos)
		pos = next

		// A blank line closes the header section
		if len(strings.TrimSpace(content)) == 0 {
			break
		}

		if maxLines > 0 && headers.Len() >= maxLines {
			return nil, errors.NewError(errors.ErrorTypeMalformedHeader,
				"too many header lines", "parseHeaders", data)
		}

		name, value := splitField(content)
		headers.SetWithOriginal(name, value, content, ending)
	}

	return headers, nil
}

// scanLine returns the line starting at pos without its terminator, the
// terminator as found on the wire, and the offset of the following line.
func scanLine(data []byte, pos int) (content, ending string, next int) {
	end := pos
	for end < len(data) && data[end] != '\n' && data[end] != '\r' {
		end++
	}

	next = end
	switch {
	case end == len(data):
		// last line without terminator
	case data[end] == '\r':
		// \r, \r\n and \r\r\n all end the line
		for next < len(data) && data[next] == '\r' {
			next++
		}
		if next < len(data) && data[next] == '\n' {
			next++
		}
	default:
		next = end + 1
	}

	return string(data[pos:end]), string(data[end:next]), next
}

// splitField separates name and value at the first colon. Lines that do not
// fit the Name: Value shape are kept under a synthetic name.
func splitField(line string) (name, value string) {
	colon := strings.IndexByte(line, ':')
	if colon == -1 {
		return MalformedHeaderName, line
	}

	// Trimmed for lookups; the untouched line is stored alongside
	name = strings.TrimSpace(line[:colon])
	value = strings.TrimSpace(line[colon+1:])
	if name == "" {
		name = EmptyHeaderName
	}
	return name, value
}

// Build reconstructs headers preserving original formatting when available
func (h *OrderedHeaders) Build() []byte {
	var buf bytes.Buffer

	for _, header := range h.All() {
		if header.OriginalLine != "" {
			// Parsed line: replay it byte for byte
			buf.WriteString(header.OriginalLine)
			if header.LineEnding != "" {
				buf.WriteString(header.LineEnding)
			} else {
				buf.WriteString("\r\n")
			}
			continue
		}
		// Added in code, so there is no original form to replay
		buf.WriteString(header.Name)
		buf.WriteString(": ")
		buf.WriteString(header.Value)
		buf.WriteString("\r\n")
	}

	return buf.Bytes()
}

// BuildNormalized reconstructs headers in standard format (Name: Value\r\n).
// Request frames are always written this way regardless of how headers were added.
func (h *OrderedHeaders) BuildNormalized() []byte {
	var buf bytes.Buffer

	for _, header := range h.All() {
		buf.WriteString(header.Name)
		buf.WriteString(": ")
		buf.WriteString(header.Value)
		buf.WriteString("\r\n")
	}

	return buf.Bytes()
}
