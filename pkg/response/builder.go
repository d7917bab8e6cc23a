package response

import (
	"bytes"
	"strconv"
)

// SetBody sets the body and its Content-Length header
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

// Build produces the wire form: status line, headers, separator, body
func (r *Response) Build() []byte {
	return r.build(true)
}

// BuildHead produces the wire form without the body, as answered to HEAD
func (r *Response) BuildHead() []byte {
	return r.build(false)
}

func (r *Response) build(withBody bool) []byte {
	var buf bytes.Buffer

	if r.StatusLine != "" {
		buf.WriteString(r.StatusLine)
	} else {
		buf.WriteString(r.Version)
		buf.WriteString(" ")
		buf.WriteString(strconv.Itoa(r.StatusCode))
		buf.WriteString(" ")
		buf.WriteString(r.StatusText)
	}
	buf.WriteString("\r\n")

	buf.Write(r.Headers.BuildNormalized())
	buf.WriteString("\r\n")

	if withBody {
		buf.Write(r.Body)
	}

	return buf.Bytes()
}
