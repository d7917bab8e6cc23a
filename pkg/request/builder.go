package request

import (
	"bytes"
)

// Build produces the request frame: request line, headers in preserved order, empty line.
// Requests have no body.
func (r *Request) Build() []byte {
	var buf bytes.Buffer

	buf.WriteString(ProtocolToken)
	buf.WriteString(" ")
	buf.WriteString(r.Method)
	buf.WriteString(" ")
	buf.WriteString(r.Target)
	buf.WriteString(" ")
	buf.WriteString(r.Version)
	buf.WriteString("\r\n")

	buf.Write(r.Headers.BuildNormalized())

	buf.WriteString("\r\n")

	return buf.Bytes()
}

// BuildString reconstructs the request frame as a string
func (r *Request) BuildString() string {
	return string(r.Build())
}

// Frame is a shortcut for New(path).Build()
func Frame(path string) []byte {
	return New(path).Build()
}
