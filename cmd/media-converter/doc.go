// Package main is the entry point of the media conversion service.
//
// The service accepts photo and video uploads over HTTP, converts them in
// the background to a format the requesting device can play, and serves the
// result for download. Clients poll job status in between.
//
// # Startup
//
//  1. Configuration: defaults, optional CONFIG_FILE, then the environment
//  2. Memory: GOMEMLIMIT from the environment or MEMORY_LIMIT x MEMORY_RATIO
//  3. Metrics registration and filesystem retry instrumentation
//  4. Encoders: libvips (if enabled), ffmpeg encoder probe and accelerator
//     selection, the tiered fallback cascade
//  5. Job store, orchestrator, metrics collector and host monitor
//  6. HTTP servers: the API on PORT and Prometheus on METRICS_PORT
//
// # Background Services
//
//   - Conversion workers, one per job, optionally bounded by CONVERT_WORKERS
//   - Metrics collector publishing job counts every minute
//   - Host monitor sampling CPU and memory for /api/stats
//   - Retention sweep evicting finished jobs after JOB_RETENTION (off by default)
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the API server stops accepting requests, running and
// queued conversions are interrupted and their jobs marked failed, leftover
// ffmpeg processes are killed, and the background services and metrics
// server are stopped. The whole sequence is bounded by a 30 second timeout.
//
// # Environment Variables
//
//   - PORT: API port (default: 5001)
//   - METRICS_PORT / METRICS_ENABLED: Prometheus endpoint (default: 9090, true)
//   - UPLOAD_DIR / CONVERTED_DIR: storage directories
//   - MAX_UPLOAD_SIZE: upload limit, e.g. 2GiB
//   - MODERN_MIN_VERSION: lowest device version given modern formats (default: 16)
//   - CONVERT_WORKERS: 0 for unbounded, a number, or auto
//   - GPU_ACCEL: auto, nvidia, vaapi, qsv, videotoolbox or none
//   - FFMPEG_PATH, VAAPI_DEVICE, VIPS_ENABLED, JOB_RETENTION, UPLOAD_RATE_LIMIT
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT
//   - LOG_LEVEL, LOG_FORMAT, LOG_HEALTH_CHECKS
//
// # Related Packages
//
//   - [media-converter/internal/orchestrator]: job intake and background conversion
//   - [media-converter/internal/encoding]: encoding policy and fallback cascade
//   - [media-converter/internal/transcoder]: ffmpeg encoder
//   - [media-converter/internal/media]: still-image encoder
//   - [media-converter/internal/handlers]: HTTP API
//   - [media-converter/internal/startup]: configuration and startup logging
package main
