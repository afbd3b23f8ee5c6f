package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/monitor"
	"media-converter/internal/orchestrator"
)

// multipartOverhead is the allowance on top of MaxUploadSize for multipart
// boundaries, headers and the capability hint field.
const multipartOverhead = 1 << 20

// JobReader is the read side of the job store.
type JobReader interface {
	Get(id string) (jobs.Job, bool)
	Stats() jobs.Stats
}

// Submitter accepts saved uploads for conversion.
type Submitter interface {
	Submit(ctx context.Context, in orchestrator.Intake) (string, error)
}

// HostMonitor reports the latest host sample.
type HostMonitor interface {
	Latest() (monitor.Snapshot, bool)
}

// Config holds handler settings.
type Config struct {
	UploadDir     string
	MaxUploadSize int64
	Accelerator   string
	Workers       int
}

// Handlers serves the conversion API.
type Handlers struct {
	jobs      JobReader
	submitter Submitter
	monitor   HostMonitor
	config    Config
	started   time.Time
	logger    zerolog.Logger
}

// New creates handlers backed by store and submitter.
func New(store JobReader, submitter Submitter, config Config) *Handlers {
	return &Handlers{
		jobs:      store,
		submitter: submitter,
		config:    config,
		started:   time.Now(),
		logger:    logging.WithComponent("handlers"),
	}
}

// SetMonitor attaches host statistics to the stats endpoint.
func (h *Handlers) SetMonitor(m HostMonitor) {
	h.monitor = m
}
