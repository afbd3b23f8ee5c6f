// Package metrics provides Prometheus instrumentation for the media-converter service.
//
// All metrics are registered with the default registry through promauto and are
// prefixed with "media_converter_". They are served on a separate port by the
// server binary (METRICS_PORT, default 9090).
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path template and status
//   - HTTPRequestDuration: Histogram of request duration by method and path template
//   - HTTPRequestsInFlight: Gauge of requests currently being served
//   - HTTPRateLimitedTotal: Counter of requests rejected by the rate limiter
//
// ## Upload Metrics
//
//   - UploadsTotal: Counter of upload requests by outcome
//   - UploadSizeBytes: Histogram of accepted upload sizes
//
// ## Job Metrics
//
//   - JobsSubmittedTotal: Counter of accepted jobs by media type and encoding policy
//   - JobsFinishedTotal: Counter of jobs reaching a terminal state
//   - JobDuration: Histogram of processing time by media type
//   - JobsInProgress: Gauge of jobs running the encoder cascade
//   - JobsQueued: Gauge of jobs waiting for a worker slot
//   - JobsByStatus: Gauge of jobs held in memory, refreshed by the Collector
//   - JobsEvictedTotal: Counter of jobs removed by the retention sweep
//
// ## Encoder Metrics
//
//   - EncodeAttemptsTotal: Counter of tier attempts by media type, tier and result
//   - EncodeAttemptDuration: Histogram of tier attempt duration
//   - TranscoderProcessesRunning: Gauge of live ffmpeg processes
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver:
//
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures
//   - FilesystemStaleErrors, FilesystemRetryDuration
//
// # Usage
//
//	metrics.SetAppInfo(version, commit, runtime.Version())
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//
//	collector := metrics.NewCollector(store, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
