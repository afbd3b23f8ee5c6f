package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultFailureReason = "conversion failed"

// Store holds job state in memory. It is safe for concurrent use; every
// read and write goes through one lock, so a reader never sees a
// half-applied transition.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
	ids  func() string
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
		ids:  uuid.NewString,
	}
}

// Create inserts a new Pending job and returns its id.
func (s *Store) Create(sourcePath string, sourceSizeBytes int64) string {
	return s.CreateWith(Spec{SourcePath: sourcePath, SourceSizeBytes: sourceSizeBytes})
}

// CreateWith inserts a new Pending job described by spec and returns its id.
func (s *Store) CreateWith(spec Spec) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids()
	for s.jobs[id] != nil {
		id = s.ids()
	}

	s.jobs[id] = &Job{
		ID:              id,
		Status:          StatusPending,
		SourcePath:      spec.SourcePath,
		SourceSizeBytes: spec.SourceSizeBytes,
		MediaType:       spec.MediaType,
		Policy:          spec.Policy,
		CreatedAt:       s.now(),
	}
	return id
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// MarkProcessing moves a Pending job to Processing.
func (s *Store) MarkProcessing(id string) error {
	return s.update(id, func(job *Job) error {
		if job.Status != StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, StatusProcessing)
		}
		job.Status = StatusProcessing
		job.StartedAt = s.now()
		return nil
	})
}

// MarkCompleted moves a non-terminal job to Completed and records its output.
func (s *Store) MarkCompleted(id, destPath string, destSizeBytes int64) error {
	return s.MarkCompletedBy(id, destPath, destSizeBytes, "")
}

// MarkCompletedBy is MarkCompleted that also records which tier produced the output.
func (s *Store) MarkCompletedBy(id, destPath string, destSizeBytes int64, tier string) error {
	return s.update(id, func(job *Job) error {
		if job.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, StatusCompleted)
		}
		job.Status = StatusCompleted
		job.DestPath = destPath
		job.DestSizeBytes = destSizeBytes
		job.Tier = tier
		job.FinishedAt = s.now()
		return nil
	})
}

// MarkFailed moves a non-terminal job to Failed with a reason.
func (s *Store) MarkFailed(id, reason string) error {
	if reason == "" {
		reason = defaultFailureReason
	}
	return s.update(id, func(job *Job) error {
		if job.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, StatusFailed)
		}
		job.Status = StatusFailed
		job.Error = reason
		job.FinishedAt = s.now()
		return nil
	})
}

func (s *Store) update(id string, apply func(*Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return apply(job)
}

// Stats counts jobs by status.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, job := range s.jobs {
		switch job.Status {
		case StatusPending:
			st.Pending++
		case StatusProcessing:
			st.Processing++
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		}
	}
	return st
}

// Sweep removes terminal jobs that finished before cutoff and returns them.
// Pending and Processing jobs are never removed.
func (s *Store) Sweep(cutoff time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []Job
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.FinishedAt.Before(cutoff) {
			removed = append(removed, *job)
			delete(s.jobs, id)
		}
	}
	return removed
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
