// Package metrics defines observability hooks for API calls, tree
// resolution and page builds.
package metrics

import "time"

// Result labels for API request counters.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder receives observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveRequest(operation string, d time.Duration, err error)
	ObserveResolve(d time.Duration)
	IncSubtreeFailure()
	IncBuildOutcome(outcome string)
}

// NoopRecorder discards everything. It is the default when metrics are not
// configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, time.Duration, error) {}
func (NoopRecorder) ObserveResolve(time.Duration)                {}
func (NoopRecorder) IncSubtreeFailure()                          {}
func (NoopRecorder) IncBuildOutcome(string)                      {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
