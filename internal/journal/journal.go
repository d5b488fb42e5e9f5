// Package journal records what happened during a test run in an SQLite
// database that is uploaded with the run-wide logs.
package journal

import (
	"context"
	"encoding/json"
	"time"
)

// EventType names a journal event.
type EventType string

const (
	RunStarted   EventType = "run.started"
	RunFinished  EventType = "run.finished"
	TestStarted  EventType = "test.started"
	TestFinished EventType = "test.finished"
)

// Event is one journal row.
type Event struct {
	ID         int64
	RunID      string
	Type       EventType
	Identifier string
	Timestamp  time.Time
	Payload    json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// TestStartedPayload is stored with TestStarted.
type TestStartedPayload struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
	Created   bool   `json:"created"`
}

// TestFinishedPayload is stored with TestFinished.
type TestFinishedPayload struct {
	Result     string `json:"result"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunFinishedPayload is stored with RunFinished.
type RunFinishedPayload struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// Journal appends and reads run events.
type Journal interface {
	Append(ctx context.Context, runID string, eventType EventType, identifier string, payload any) error
	ByRun(ctx context.Context, runID string) ([]Event, error)
	Close() error
}
