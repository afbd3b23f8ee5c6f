package jobs

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a conversion job.
type Status int

const (
	// StatusPending means the job was accepted and waits for a worker.
	StatusPending Status = iota
	// StatusProcessing means the encoder cascade is running.
	StatusProcessing
	// StatusCompleted is terminal: the output exists at DestPath.
	StatusCompleted
	// StatusFailed is terminal: every tier failed or the run faulted.
	StatusFailed
)

var (
	// ErrNotFound is returned for ids the store has never issued (or has evicted).
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a mutation would move a job
	// backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// String renders the status the way clients see it.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Job is a snapshot of a conversion request.
//
// DestPath and DestSizeBytes are set only when Status is StatusCompleted;
// Error is set only when Status is StatusFailed.
type Job struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	SourcePath      string    `json:"sourcePath"`
	SourceSizeBytes int64     `json:"sourceSizeBytes"`
	DestPath        string    `json:"destPath,omitempty"`
	DestSizeBytes   int64     `json:"destSizeBytes,omitempty"`
	Error           string    `json:"error,omitempty"`
	MediaType       string    `json:"mediaType,omitempty"`
	Policy          string    `json:"policy,omitempty"`
	Tier            string    `json:"tier,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
	FinishedAt      time.Time `json:"finishedAt,omitempty"`
}

// Spec describes a job at creation time.
type Spec struct {
	SourcePath      string
	SourceSizeBytes int64
	MediaType       string
	Policy          string
}

// Stats counts jobs by status.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Total returns the number of jobs across all states.
func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
