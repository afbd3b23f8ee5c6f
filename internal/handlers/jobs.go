package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"media-converter/internal/filesystem"
	"media-converter/internal/jobs"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/streaming"
)

// StatusResponse is the externally visible view of a job.
// ConvertedSizeBytes is null until the job completes.
type StatusResponse struct {
	Status             string `json:"status"`
	OriginalSizeBytes  int64  `json:"original_size_bytes"`
	ConvertedSizeBytes *int64 `json:"converted_size_bytes"`
	Error              string `json:"error,omitempty"`
}

func statusResponse(job jobs.Job) StatusResponse {
	resp := StatusResponse{
		Status:            job.Status.String(),
		OriginalSizeBytes: job.SourceSizeBytes,
		Error:             job.Error,
	}
	if job.Status == jobs.StatusCompleted {
		size := job.DestSizeBytes
		resp.ConvertedSizeBytes = &size
	}
	return resp
}

// GetStatus reports a job's state and sizes.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(mux.Vars(r)["job_id"])
	if !ok {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, statusResponse(job))
}

// Download streams the converted file of a completed job.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["job_id"]
	job, ok := h.jobs.Get(id)
	if !ok {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}

	if job.Status != jobs.StatusCompleted {
		writeJSONError(w, fmt.Sprintf("job not ready, current status: %s", job.Status), http.StatusBadRequest)
		return
	}

	f, err := filesystem.OpenWithRetry(job.DestPath, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "converted file not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("job_id", id).Str("path", job.DestPath).Msg("failed to open converted file")
		writeJSONError(w, "failed to open converted file", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, "failed to stat converted file", http.StatusInternalServerError)
		return
	}

	name := filepath.Base(job.DestPath)
	w.Header().Set("Content-Type", mediatypes.GetMimeType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	sw := streaming.NewWriter(r.Context(), w, streaming.DefaultConfig())
	http.ServeContent(sw, r, name, info.ModTime(), f)
	_ = sw.Close()

	if r.Method == http.MethodHead {
		return
	}
	sent, took := sw.Stats()
	metrics.DownloadBytesTotal.Add(float64(sent))
	if err := sw.Err(); err != nil {
		metrics.DownloadsTotal.WithLabelValues("aborted").Inc()
		h.logger.Warn().Err(err).Str("job_id", id).Int64("bytes", sent).Dur("elapsed", took).Msg("download aborted")
		return
	}
	metrics.DownloadsTotal.WithLabelValues("complete").Inc()
	h.logger.Debug().Str("job_id", id).Int64("bytes", sent).Dur("elapsed", took).Msg("download sent")
}
