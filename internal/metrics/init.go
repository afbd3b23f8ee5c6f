package metrics

// Label values used across the job and encoder metrics.
var (
	mediaTypes     = []string{"video", "image"}
	policies       = []string{"modern", "legacy"}
	tiers          = []string{"hardware", "software", "universal"}
	tierResults    = []string{"success", "failed", "timeout", "cancelled"}
	jobStatuses    = []string{"pending", "processing", "completed", "error"}
	uploadStates   = []string{"accepted", "rejected", "too_large", "error", "unavailable"}
	downloadStates = []string{"complete", "aborted"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range uploadStates {
		UploadsTotal.WithLabelValues(status)
	}
	for _, status := range downloadStates {
		DownloadsTotal.WithLabelValues(status)
	}

	for _, status := range jobStatuses {
		JobsByStatus.WithLabelValues(status)
	}

	for _, mt := range mediaTypes {
		for _, p := range policies {
			JobsSubmittedTotal.WithLabelValues(mt, p)
		}
		JobsFinishedTotal.WithLabelValues(mt, "completed")
		JobsFinishedTotal.WithLabelValues(mt, "error")
		JobDuration.WithLabelValues(mt)

		for _, tier := range tiers {
			EncodeAttemptDuration.WithLabelValues(mt, tier)
			for _, result := range tierResults {
				EncodeAttemptsTotal.WithLabelValues(mt, tier, result)
			}
		}
	}

	volumes := []string{"uploads", "converted", "unknown"}
	for _, op := range []string{"stat", "open"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
