package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"media-converter/internal/metrics"
)

type fakeSampler struct {
	vm     *mem.VirtualMemoryStat
	cpu    []float64
	memErr error
	cpuErr error
}

func (f fakeSampler) memory(context.Context) (*mem.VirtualMemoryStat, error) {
	return f.vm, f.memErr
}

func (f fakeSampler) cpuPercent(context.Context, time.Duration) ([]float64, error) {
	return f.cpu, f.cpuErr
}

func newFakeMonitor(s fakeSampler) *Monitor {
	m := New(Config{Interval: 10 * time.Millisecond})
	m.sampler = s
	return m
}

func TestNew_Defaults(t *testing.T) {
	m := New(Config{})
	def := DefaultConfig()
	assert.Equal(t, def.Interval, m.config.Interval)
	assert.Equal(t, def.BusyCPUPercent, m.config.BusyCPUPercent)
	assert.Equal(t, def.BusyMemoryPercent, m.config.BusyMemoryPercent)

	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestSample(t *testing.T) {
	tests := []struct {
		name     string
		cpu      []float64
		memPct   float64
		wantBusy bool
	}{
		{"idle", []float64{12.5}, 40, false},
		{"cpu bound", []float64{95}, 40, true},
		{"memory bound", []float64{10}, 93, true},
		{"no cpu reading", nil, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMonitor(fakeSampler{
				vm:  &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, UsedPercent: tt.memPct},
				cpu: tt.cpu,
			})

			snap, err := m.Sample(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantBusy, snap.Busy)
			assert.Equal(t, tt.memPct, snap.MemoryPercent)
			assert.Equal(t, uint64(8<<30), snap.MemoryTotalBytes)
			assert.Positive(t, snap.Goroutines)
			assert.False(t, snap.SampledAt.IsZero())

			latest, ok := m.Latest()
			require.True(t, ok)
			assert.Equal(t, snap, latest)

			assert.Equal(t, tt.memPct, testutil.ToFloat64(metrics.HostMemoryPercent))
		})
	}
}

func TestSample_Errors(t *testing.T) {
	vm := &mem.VirtualMemoryStat{UsedPercent: 10}

	m := newFakeMonitor(fakeSampler{memErr: errors.New("no /proc")})
	_, err := m.Sample(context.Background())
	assert.ErrorContains(t, err, "mem stats")

	m = newFakeMonitor(fakeSampler{vm: vm, cpuErr: errors.New("no /proc/stat")})
	_, err = m.Sample(context.Background())
	assert.ErrorContains(t, err, "cpu stats")

	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newFakeMonitor(fakeSampler{
		vm:  &mem.VirtualMemoryStat{UsedPercent: 30},
		cpu: []float64{5},
	})
	m.Start()
	m.Start()

	require.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
}

func TestStop_NeverStarted(t *testing.T) {
	m := New(Config{})
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a monitor that never started")
	}
}

func TestSample_RealHost(t *testing.T) {
	if testing.Short() {
		t.Skip("samples the real host")
	}
	m := New(Config{})

	snap, err := m.Sample(context.Background())
	if err != nil {
		t.Skipf("host stats unavailable: %v", err)
	}
	assert.Positive(t, snap.MemoryTotalBytes)
	assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
}
