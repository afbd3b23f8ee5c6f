package monitor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Snapshot is one sample of host and process resources.
type Snapshot struct {
	CPUPercent       float64   `json:"cpuPercent"`
	MemoryPercent    float64   `json:"memoryPercent"`
	MemoryUsedBytes  uint64    `json:"memoryUsedBytes"`
	MemoryTotalBytes uint64    `json:"memoryTotalBytes"`
	HeapAllocBytes   uint64    `json:"heapAllocBytes"`
	Goroutines       int       `json:"goroutines"`
	Busy             bool      `json:"busy"`
	SampledAt        time.Time `json:"sampledAt"`
}

// Config controls sampling.
type Config struct {
	// Interval between background samples.
	Interval time.Duration
	// CPUWindow is how long each CPU sample measures. Zero compares
	// against the previous sample.
	CPUWindow time.Duration
	// BusyCPUPercent and BusyMemoryPercent mark the host busy when crossed.
	BusyCPUPercent    float64
	BusyMemoryPercent float64
}

// DefaultConfig returns the sampling defaults.
func DefaultConfig() Config {
	return Config{
		Interval:          15 * time.Second,
		CPUWindow:         0,
		BusyCPUPercent:    80,
		BusyMemoryPercent: 90,
	}
}

type sampler interface {
	memory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	cpuPercent(ctx context.Context, window time.Duration) ([]float64, error)
}

type gopsutilSampler struct{}

func (gopsutilSampler) memory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilSampler) cpuPercent(ctx context.Context, window time.Duration) ([]float64, error) {
	return cpu.PercentWithContext(ctx, window, false)
}

// Monitor caches the latest Snapshot and refreshes it in the background.
type Monitor struct {
	config  Config
	sampler sampler
	logger  zerolog.Logger

	mu     sync.RWMutex
	latest Snapshot

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a monitor. Zero fields in config take their defaults.
func New(config Config) *Monitor {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BusyCPUPercent <= 0 {
		config.BusyCPUPercent = def.BusyCPUPercent
	}
	if config.BusyMemoryPercent <= 0 {
		config.BusyMemoryPercent = def.BusyMemoryPercent
	}

	return &Monitor{
		config:   config,
		sampler:  gopsutilSampler{},
		logger:   logging.WithComponent("monitor"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Sample takes a fresh snapshot, caches it and updates the host gauges.
func (m *Monitor) Sample(ctx context.Context) (Snapshot, error) {
	vm, err := m.sampler.memory(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get mem stats: %w", err)
	}

	pct, err := m.sampler.cpuPercent(ctx, m.config.CPUWindow)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get cpu stats: %w", err)
	}

	var rt runtime.MemStats
	runtime.ReadMemStats(&rt)

	snap := Snapshot{
		MemoryPercent:    vm.UsedPercent,
		MemoryUsedBytes:  vm.Used,
		MemoryTotalBytes: vm.Total,
		HeapAllocBytes:   rt.HeapAlloc,
		Goroutines:       runtime.NumGoroutine(),
		SampledAt:        time.Now(),
	}
	if len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	snap.Busy = snap.CPUPercent > m.config.BusyCPUPercent || snap.MemoryPercent > m.config.BusyMemoryPercent

	m.mu.Lock()
	wasBusy := m.latest.Busy
	m.latest = snap
	m.mu.Unlock()

	metrics.HostCPUPercent.Set(snap.CPUPercent)
	metrics.HostMemoryPercent.Set(snap.MemoryPercent)
	if snap.Busy {
		metrics.HostBusy.Set(1)
	} else {
		metrics.HostBusy.Set(0)
	}

	if snap.Busy != wasBusy {
		m.logger.Info().
			Bool("busy", snap.Busy).
			Float64("cpu_percent", snap.CPUPercent).
			Float64("memory_percent", snap.MemoryPercent).
			Msg("host load changed")
	}

	return snap, nil
}

// Latest returns the cached snapshot and whether one has been taken.
func (m *Monitor) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, !m.latest.SampledAt.IsZero()
}

// Start samples once and then on every interval until Stop is called.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.loop()
}

func (m *Monitor) loop() {
	defer close(m.done)

	m.sampleOnce()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sampleOnce()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) sampleOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Interval)
	defer cancel()
	if _, err := m.Sample(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("host sample failed")
	}
}

// Stop ends the background loop and waits for it. Safe to call more than
// once; a monitor that was never started returns immediately.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	if m.started.Load() {
		<-m.done
	}
}
