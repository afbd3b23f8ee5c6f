package handlers

import (
	"net/http"
	"time"

	"media-converter/internal/monitor"
)

// JobCounts is the number of jobs in each state.
type JobCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// StatsResponse summarises the service.
type StatsResponse struct {
	Jobs        JobCounts         `json:"jobs"`
	Accelerator string            `json:"accelerator"`
	Workers     int               `json:"workers"`
	Uptime      string            `json:"uptime"`
	Host        *monitor.Snapshot `json:"host,omitempty"`
}

// GetStats returns job counts and host load.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	s := h.jobs.Stats()

	resp := StatsResponse{
		Jobs: JobCounts{
			Pending:    s.Pending,
			Processing: s.Processing,
			Completed:  s.Completed,
			Failed:     s.Failed,
			Total:      s.Total(),
		},
		Accelerator: h.config.Accelerator,
		Workers:     h.config.Workers,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}

	if h.monitor != nil {
		if snap, ok := h.monitor.Latest(); ok {
			resp.Host = &snap
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, resp)
}
