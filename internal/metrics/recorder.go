package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultPassed ResultLabel = "passed"
	ResultFailed ResultLabel = "failed"
	ResultError  ResultLabel = "error"
)

// Upload kinds used as label values.
const (
	KindLogs      = "logs"
	KindArtifacts = "artifacts"
)

// Recorder defines observability hooks for workspace, upload and test metrics.
type Recorder interface {
	IncTestDirectory(created bool)
	ObserveUpload(kind string, files int, d time.Duration, success bool)
	ObserveCompress(d time.Duration, size int64, success bool)
	IncTestResult(result ResultLabel)
	ObserveTestDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTestDirectory(bool)                           {}
func (NoopRecorder) ObserveUpload(string, int, time.Duration, bool) {}
func (NoopRecorder) ObserveCompress(time.Duration, int64, bool)     {}
func (NoopRecorder) IncTestResult(ResultLabel)                      {}
func (NoopRecorder) ObserveTestDuration(time.Duration)              {}
