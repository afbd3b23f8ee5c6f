package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_uploads_total",
			Help: "Total number of upload requests by outcome",
		},
		[]string{"status"}, // "accepted", "rejected", "too_large", "error", "unavailable"
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_upload_size_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10), // 64KiB .. 16GiB
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_downloads_total",
			Help: "Total number of converted file downloads by outcome",
		},
		[]string{"status"}, // "complete", "aborted"
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_download_bytes_total",
			Help: "Total bytes of converted files sent to clients",
		},
	)
)

// Job metrics
var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_submitted_total",
			Help: "Total number of conversion jobs accepted",
		},
		[]string{"media_type", "policy"},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_finished_total",
			Help: "Total number of conversion jobs that reached a terminal state",
		},
		[]string{"media_type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_job_duration_seconds",
			Help:    "Time from a job entering processing to its terminal state",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"media_type"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs_in_progress",
			Help: "Number of jobs currently running the encoder cascade",
		},
	)

	JobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs_queued",
			Help: "Number of dispatched jobs waiting for a worker slot",
		},
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs",
			Help: "Number of jobs held in memory by status",
		},
		[]string{"status"},
	)

	JobsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_evicted_total",
			Help: "Total number of terminal jobs removed by the retention sweep",
		},
	)
)

// Encoder metrics
var (
	EncodeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_encode_attempts_total",
			Help: "Total number of encoder tier attempts by outcome",
		},
		[]string{"media_type", "tier", "result"}, // result: "success", "failed", "timeout", "cancelled"
	)

	EncodeAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_encode_attempt_duration_seconds",
			Help:    "Encoder tier attempt duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"media_type", "tier"},
	)

	TranscoderProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_transcoder_processes_running",
			Help: "Number of ffmpeg processes currently running",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Host and memory metrics
var (
	HostCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_host_cpu_percent",
			Help: "Host CPU utilisation in percent, sampled by the monitor",
		},
	)

	HostMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_host_memory_percent",
			Help: "Host memory utilisation in percent, sampled by the monitor",
		},
	)

	HostBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_host_busy",
			Help: "Whether the host is above the busy thresholds (1 = busy)",
		},
	)

	MemoryLimitBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_limit_bytes",
			Help: "Go soft memory limit in bytes (0 if unset)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
