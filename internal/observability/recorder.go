package observability

import (
	"time"
)

// FetchRecorder forwards fetch completions to the package collectors
type FetchRecorder struct{}

func (FetchRecorder) ObserveFetch(outcome string, duration time.Duration, rawBytes int) {
	RecordFetch(outcome, duration, rawBytes)
}
