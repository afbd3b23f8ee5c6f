package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	"media-converter/internal/encoding"
	"media-converter/internal/logging"
	"media-converter/internal/monitor"
	"media-converter/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// maxWorkersAuto caps CONVERT_WORKERS=auto.
const maxWorkersAuto = 8

// Config holds all application configuration
type Config struct {
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	UploadDir        string
	ConvertedDir     string
	MaxUploadSize    int64
	ModernMinVersion int
	ConvertWorkers   int
	GPUAccel         string
	FFmpegPath       string
	VAAPIDevice      string
	JobRetention     time.Duration
	UploadRateLimit  int
	LogHealthChecks  bool
	VipsEnabled      bool
	MemoryLimit      int64
	MemoryRatio      float64

	// ConfigFile is the YAML file that was read, if any.
	ConfigFile string
}

// defaults are keyed the way they appear in a config file; the environment
// uses the upper-case form (upload_dir -> UPLOAD_DIR).
var defaults = map[string]interface{}{
	"port":               "5001",
	"metrics_port":       "9090",
	"metrics_enabled":    true,
	"upload_dir":         "uploads",
	"converted_dir":      "converted",
	"max_upload_size":    "2GiB",
	"modern_min_version": encoding.DefaultModernThreshold,
	"convert_workers":    "0",
	"gpu_accel":          "auto",
	"ffmpeg_path":        "ffmpeg",
	"vaapi_device":       "",
	"job_retention":      "0",
	"upload_rate_limit":  30,
	"log_health_checks":  true,
	"vips_enabled":       true,
	"memory_limit":       "0",
	"memory_ratio":       monitor.DefaultMemoryRatio,
}

// LoadConfig prints the banner and loads configuration from defaults, the
// optional CONFIG_FILE and the environment, in increasing precedence.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		logging.Info("  CONFIG_FILE:         %s", configFile)
	}

	maxUpload, err := humanize.ParseBytes(v.GetString("max_upload_size"))
	if err != nil || maxUpload == 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE %q", v.GetString("max_upload_size"))
	}

	convertWorkers, err := workers.Resolve(v.GetString("convert_workers"), maxWorkersAuto)
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERT_WORKERS: %w", err)
	}

	modernMin := v.GetInt("modern_min_version")
	if modernMin <= 0 {
		logging.Warn("  Invalid MODERN_MIN_VERSION, using default: %d", encoding.DefaultModernThreshold)
		modernMin = encoding.DefaultModernThreshold
	}

	retention, err := time.ParseDuration(v.GetString("job_retention"))
	if err != nil || retention < 0 {
		logging.Warn("  Invalid JOB_RETENTION, retention disabled")
		retention = 0
	}

	var memoryLimit int64
	if raw := v.GetString("memory_limit"); raw != "" && raw != "0" {
		parsed, err := humanize.ParseBytes(raw)
		if err != nil {
			logging.Warn("  Invalid MEMORY_LIMIT %q, ignoring", raw)
		} else {
			memoryLimit = int64(parsed)
		}
	}

	config := &Config{
		Port:             v.GetString("port"),
		MetricsPort:      v.GetString("metrics_port"),
		MetricsEnabled:   v.GetBool("metrics_enabled"),
		UploadDir:        v.GetString("upload_dir"),
		ConvertedDir:     v.GetString("converted_dir"),
		MaxUploadSize:    int64(maxUpload),
		ModernMinVersion: modernMin,
		ConvertWorkers:   convertWorkers,
		GPUAccel:         strings.ToLower(v.GetString("gpu_accel")),
		FFmpegPath:       v.GetString("ffmpeg_path"),
		VAAPIDevice:      v.GetString("vaapi_device"),
		JobRetention:     retention,
		UploadRateLimit:  v.GetInt("upload_rate_limit"),
		LogHealthChecks:  v.GetBool("log_health_checks"),
		VipsEnabled:      v.GetBool("vips_enabled"),
		MemoryLimit:      memoryLimit,
		MemoryRatio:      v.GetFloat64("memory_ratio"),
		ConfigFile:       configFile,
	}

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  UPLOAD_DIR:          %s", config.UploadDir)
	logging.Info("  CONVERTED_DIR:       %s", config.ConvertedDir)
	logging.Info("  MAX_UPLOAD_SIZE:     %s", humanize.IBytes(maxUpload))
	logging.Info("  MODERN_MIN_VERSION:  %d", config.ModernMinVersion)
	logging.Info("  CONVERT_WORKERS:     %s", workersString(config.ConvertWorkers))
	logging.Info("  GPU_ACCEL:           %s", config.GPUAccel)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	if config.VAAPIDevice != "" {
		logging.Info("  VAAPI_DEVICE:        %s", config.VAAPIDevice)
	}
	logging.Info("  JOB_RETENTION:       %s", retentionString(config.JobRetention))
	logging.Info("  UPLOAD_RATE_LIMIT:   %d/min", config.UploadRateLimit)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  VIPS_ENABLED:        %v", config.VipsEnabled)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct {
		path *string
		name string
	}{
		{&config.UploadDir, "upload"},
		{&config.ConvertedDir, "converted"},
	} {
		abs, err := filepath.Abs(*dir.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		*dir.path = abs
		logging.Info("  %s directory (absolute): %s", capitalize(dir.name), abs)

		if err := ensureDirectory(abs, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(abs); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", capitalize(dir.name))
	}

	if err := checkSeparateDirs(config.UploadDir, config.ConvertedDir); err != nil {
		return nil, err
	}

	return config, nil
}

// checkSeparateDirs rejects upload and converted directories that are the
// same or nested, since outputs are named after their sources.
func checkSeparateDirs(uploadDir, convertedDir string) error {
	if pathWithin(uploadDir, convertedDir) || pathWithin(convertedDir, uploadDir) {
		return fmt.Errorf("UPLOAD_DIR %s and CONVERTED_DIR %s must be separate, non-nested directories", uploadDir, convertedDir)
	}
	return nil
}

// pathWithin reports whether path is dir or lies below it.
func pathWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func workersString(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}

func retentionString(d time.Duration) string {
	if d == 0 {
		return "disabled"
	}
	return d.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogMemoryConfig logs how the Go memory limit was set.
func LogMemoryConfig(result monitor.MemoryLimit) {
	if !result.Configured {
		logging.Debug("  Go memory limit: not configured")
		return
	}
	logging.Info("  Go memory limit: %s (source: %s)", humanize.IBytes(uint64(result.GoMemLimit)), result.Source)
}

// LogTranscoderInit logs transcoder initialization and checks FFmpeg
func LogTranscoderInit(ffmpegPath, accelerator string, encoders int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checkFFmpeg(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video and hardware image tiers will fail; stills fall back to the in-process encoder")
		return
	}
	logging.Info("  [OK] FFmpeg is available")
	logging.Info("  Accelerator:     %s", accelerator)
	logging.Info("  Encoders found:  %d", encoders)
}

// LogVipsInit logs whether libvips backs the still encoder.
func LogVipsInit(enabled bool) {
	logging.Info("  libvips:         %s", enabledString(enabled))
	if !enabled {
		logging.Info("  HEIC stills will rely on ffmpeg tiers only")
	}
}

// LogOrchestratorInit logs dispatch settings.
func LogOrchestratorInit(workers, modernMin int, retention time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ORCHESTRATOR INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Concurrent conversions: %s", workersString(workers))
	logging.Info("  Modern policy from:     iOS %d", modernMin)
	logging.Info("  Job retention:          %s", retentionString(retention))
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path == routes[j].Path {
				return routes[i].Method < routes[j].Method
			}
			return routes[i].Path < routes[j].Path
		})

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Upload:        http://0.0.0.0:%s/upload", config.Port)
	logging.Info("    Status:        http://0.0.0.0:%s/status/{job_id}", config.Port)
	logging.Info("    Download:      http://0.0.0.0:%s/download/{job_id}", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   __  ___       ___        _____                     __
  /  |/  /__ ___/ (_)__ _  / ___/__  ___ _  _____ ___/ /_
 / /|_/ / -_) _  / / _ '/ / /__/ _ \/ _ \ |/ / -_) __/ __/
/_/  /_/\__/\_,_/_/\_,_/  \___/\___/_//_/___/\__/_/  \__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg(ffmpegPath string) error {
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", ffmpegPath)
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}
	return nil
}
