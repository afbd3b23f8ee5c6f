package workers

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Count returns a worker count of multiplier × GOMAXPROCS, at least 1 and
// capped by limit (0 means no cap). GOMAXPROCS follows container CPU limits.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForEncode returns the worker count for conversions. A software encode
// already spreads across cores, so half the CPUs is enough to keep the
// machine busy without thrashing.
func ForEncode(limit int) int {
	return Count(0.5, limit)
}

// Resolve interprets a CONVERT_WORKERS setting: "" or "0" means unbounded
// (returns 0), "auto" sizes from the CPU count capped by limit, and a
// positive integer is used as is.
func Resolve(setting string, limit int) (int, error) {
	s := strings.ToLower(strings.TrimSpace(setting))
	switch s {
	case "", "0", "unbounded":
		return 0, nil
	case "auto":
		return ForEncode(limit), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid worker count %q: want a non-negative integer or \"auto\"", setting)
	}
	return n, nil
}
