package monitor

import (
	"math"
	"os"
	"runtime/debug"

	"github.com/dustin/go-humanize"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// DefaultMemoryRatio is the share of the container limit given to the Go heap.
// The remainder is left for encoder subprocesses and libvips.
const DefaultMemoryRatio = 0.75

// MemoryLimit reports how the Go soft memory limit was decided.
type MemoryLimit struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "container" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureMemoryLimit sets the Go soft memory limit to ratio of
// containerLimit. An explicit GOMEMLIMIT in the environment wins, and a
// non-positive containerLimit leaves the runtime default alone.
func ConfigureMemoryLimit(containerLimit int64, ratio float64) MemoryLimit {
	if os.Getenv("GOMEMLIMIT") != "" {
		result := MemoryLimit{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
			metrics.MemoryLimitBytes.Set(float64(limit))
		}
		logging.Info("GOMEMLIMIT set via environment: %s", os.Getenv("GOMEMLIMIT"))
		return result
	}

	if containerLimit <= 0 {
		logging.Debug("No container memory limit, GOMEMLIMIT not configured")
		return MemoryLimit{Source: "none"}
	}

	if ratio <= 0 || ratio > 1 {
		logging.Warn("Memory ratio %.2f out of range (0.0-1.0), using %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)
	metrics.MemoryLimitBytes.Set(float64(limit))

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		humanize.IBytes(uint64(limit)), ratio*100, humanize.IBytes(uint64(containerLimit)))

	return MemoryLimit{
		Configured:     true,
		Source:         "container",
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}
