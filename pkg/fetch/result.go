package fetch

import (
	"github.com/WhileEndless/go-kenuts/pkg/rawkenuts"
	"github.com/WhileEndless/go-kenuts/pkg/response"
)

// Stage names the pipeline step a fetch failed in
type Stage string

const (
	StageAddress    Stage = "address"
	StageConnection Stage = "connection"
	StageResponse   Stage = "response"
)

// Failure is the error of a failed fetch. Message is localized and ready for display.
type Failure struct {
	Stage   Stage
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the single outcome of a fetch.
// Err is nil on success and a *Failure otherwise.
type Result struct {
	Body string
	Err  error

	// Response is the decoded response; nil when decoding failed or never ran
	Response *response.Response

	// Exchange carries the raw bytes, connection metadata and timing; nil before the transport succeeded
	Exchange *rawkenuts.Response

	// RequestID correlates the fetch with its log lines
	RequestID string
}

// OK reports whether the fetch succeeded
func (r Result) OK() bool {
	return r.Err == nil
}
