// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] layers three sources with viper: built-in defaults, an
// optional YAML file named by CONFIG_FILE, and the environment. File keys
// are lower case (upload_dir); environment keys are upper case (UPLOAD_DIR).
//
//   - PORT: HTTP server port (default: 5001)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - UPLOAD_DIR: Where uploads are saved (default: uploads)
//   - CONVERTED_DIR: Where converted outputs are written (default: converted)
//   - MAX_UPLOAD_SIZE: Upload body cap, human sizes accepted (default: 2GiB)
//   - MODERN_MIN_VERSION: Lowest iOS major version given AV1 output (default: 16)
//   - CONVERT_WORKERS: Concurrent conversions; 0 is unbounded, auto scales with CPUs (default: 0)
//   - GPU_ACCEL: auto, nvidia, vaapi, qsv, videotoolbox or none (default: auto)
//   - FFMPEG_PATH: ffmpeg binary (default: ffmpeg)
//   - JOB_RETENTION: Evict terminal jobs older than this; 0 disables (default: 0)
//   - UPLOAD_RATE_LIMIT: Uploads per client IP per minute (default: 30)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - VIPS_ENABLED: Use libvips for still images (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO: Container limit and heap share used for GOMEMLIMIT
//   - LOG_LEVEL, LOG_FORMAT: See package logging
//
// Both directories are created if missing and must be writable.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
//
// # Lifecycle Logging
//
// The Log* functions print the banner-style sections the server emits while
// starting and stopping.
package startup
