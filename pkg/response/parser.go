package response

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-kenuts/pkg/errors"
	"github.com/WhileEndless/go-kenuts/pkg/headers"
)

// Separator divides the header block from the body
const Separator = "\r\n\r\n"

var separator = []byte(Separator)

// Decode splits a terminal buffer into header block and body.
// The first separator is the boundary; later separators belong to the body.
// A buffer without a separator yields a MalformedResponse error.
func Decode(raw []byte) (*Response, error) {
	headerBlock, _, found := bytes.Cut(raw, separator)
	if !found {
		return nil, errors.NewError(errors.ErrorTypeMalformedResponse,
			"header/body separator not found", "decode", raw)
	}

	resp := NewResponse()
	resp.Raw = make([]byte, len(raw))
	copy(resp.Raw, raw)
	resp.HeaderBlock = resp.Raw[:len(headerBlock)]
	resp.Body = resp.Raw[len(headerBlock)+len(separator):]

	resp.parseHeaderBlock()

	return resp, nil
}

// Split is Decode reduced to the body, for callers that only need the text
func Split(raw []byte) (string, error) {
	resp, err := Decode(raw)
	if err != nil {
		return "", err
	}
	return resp.BodyString(), nil
}

// parseHeaderBlock fills the status line and headers on a best-effort basis
func (r *Response) parseHeaderBlock() {
	block := r.HeaderBlock

	lineEnd := bytes.IndexAny(block, "\r\n")
	if lineEnd == -1 {
		lineEnd = len(block)
	}

	if r.parseStatusLine(string(block[:lineEnd])) {
		block = block[lineEnd:]
		block = bytes.TrimLeft(block, "\r\n")
	}

	parsed, err := headers.ParseHeaders(block)
	if err == nil {
		r.Headers = parsed
	}
}

// parseStatusLine recognizes "ZG/1.0 200 OK"; anything else is left to the header parser
func (r *Response) parseStatusLine(line string) bool {
	if !strings.HasPrefix(strings.ToUpper(line), "ZG/") {
		return false
	}

	r.StatusLine = line
	parts := strings.SplitN(line, " ", 3)
	r.Version = parts[0]
	if len(parts) >= 2 {
		if code, err := strconv.Atoi(parts[1]); err == nil {
			r.StatusCode = code
		}
	}
	if len(parts) >= 3 {
		r.StatusText = parts[2]
	}
	return true
}
