package domain

import (
	"encoding/json"
	"time"
)

// JobState enumerates the media generation lifecycle as seen by clients.
type JobState string

const (
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// MediaResult is the finished output of one generation run.
type MediaResult struct {
	ImageURL    string `json:"imageUrl"`
	VideoURL    string `json:"videoUrl"`
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`
	ProductName string `json:"productName"`
	GeneratedAt string `json:"generatedAt"`
}

// JobHandle is the acknowledgement returned by the media generation webhook.
// Fields the workflow leaves out stay out; Data is kept raw so whatever the
// workflow answers reaches the caller untouched.
type JobHandle struct {
	Success     *bool           `json:"success,omitempty"`
	Status      JobState        `json:"status,omitempty"`
	JobID       string          `json:"jobId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// JobStatus is the uniform status answer served to polling clients.
type JobStatus struct {
	Success  bool     `json:"success"`
	Status   JobState `json:"status"`
	Message  string   `json:"message,omitempty"`
	Progress *int     `json:"progress,omitempty"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// WithProgress returns a copy of s carrying the given progress value.
func (s JobStatus) WithProgress(p int) JobStatus {
	s.Progress = &p
	return s
}

// ReceivedAtLayout matches the millisecond UTC timestamps browsers emit.
const ReceivedAtLayout = "2006-01-02T15:04:05.000Z"

// ResultEntry is one callback body pushed by the workflow engine.
type ResultEntry struct {
	JobID      string
	Payload    map[string]any
	ReceivedAt time.Time
}

// Data merges the stored payload with its receipt timestamp. A receivedAt key
// sent by the engine is replaced.
func (e ResultEntry) Data() map[string]any {
	out := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["receivedAt"] = e.ReceivedAt.UTC().Format(ReceivedAtLayout)
	return out
}
