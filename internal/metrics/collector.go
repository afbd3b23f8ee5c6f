package metrics

import (
	"sync"
	"time"

	"media-converter/internal/jobs"
	"media-converter/internal/logging"
)

// StatsProvider reports job counts by status. *jobs.Store implements it.
type StatsProvider interface {
	Stats() jobs.Stats
}

// Collector periodically publishes job counts as gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	JobsByStatus.WithLabelValues("pending").Set(float64(stats.Pending))
	JobsByStatus.WithLabelValues("processing").Set(float64(stats.Processing))
	JobsByStatus.WithLabelValues("completed").Set(float64(stats.Completed))
	JobsByStatus.WithLabelValues("error").Set(float64(stats.Failed))

	logging.Debug("Metrics collected: pending=%d, processing=%d, completed=%d, failed=%d",
		stats.Pending, stats.Processing, stats.Completed, stats.Failed)
}
