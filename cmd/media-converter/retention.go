package main

import (
	"context"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// sweepInterval is a tenth of the retention period, but at least a minute.
func sweepInterval(retention time.Duration) time.Duration {
	interval := retention / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func runRetention(ctx context.Context, store *jobs.Store, retention time.Duration) {
	ticker := time.NewTicker(sweepInterval(retention))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweepExpired(store, now.Add(-retention))
		}
	}
}

// sweepExpired evicts terminal jobs finished before cutoff together with
// their uploaded and converted files.
func sweepExpired(store *jobs.Store, cutoff time.Time) int {
	evicted := store.Sweep(cutoff)
	for _, job := range evicted {
		for _, path := range []string{job.SourcePath, job.DestPath} {
			if path == "" {
				continue
			}
			if err := filesystem.RemoveIfExists(path); err != nil {
				logging.Warn("Failed to remove %s for evicted job %s: %v", path, job.ID, err)
			}
		}
	}

	if n := len(evicted); n > 0 {
		metrics.JobsEvictedTotal.Add(float64(n))
		logging.Info("Evicted %d expired jobs", n)
	}
	return len(evicted)
}
