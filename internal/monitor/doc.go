// Package monitor samples host resources for the stats endpoint and the
// Prometheus gauges.
//
// A Monitor refreshes a cached Snapshot on a fixed interval using gopsutil.
// The host counts as busy when CPU or RAM crosses its threshold; the flag is
// informational and does not gate intake.
//
// ConfigureMemoryLimit derives GOMEMLIMIT from a container memory limit so
// the Go heap leaves room for ffmpeg and libvips, which allocate outside it.
package monitor
