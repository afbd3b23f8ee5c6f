package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"media-converter/internal/filesystem"
	"media-converter/internal/metrics"
	"media-converter/internal/orchestrator"
)

const (
	uploadField = "media"
	hintField   = "ios_version"
	maxHintLen  = 64
)

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	JobID string `json:"job_id"`
}

// Upload saves the "media" part of a multipart body and starts its
// conversion. The capability hint comes from the ios_version query
// parameter or form field. The response only waits for the file to be
// saved.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize+multipartOverhead)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.rejectUpload(w, "rejected", "expected a multipart/form-data body", http.StatusBadRequest)
		return
	}

	hint := r.URL.Query().Get(hintField)
	var saved *filesystem.Saved

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.discard(saved)
			h.rejectBodyError(w, err)
			return
		}

		switch part.FormName() {
		case uploadField:
			if saved != nil {
				_ = part.Close()
				continue
			}
			s, err := filesystem.SaveUpload(h.config.UploadDir, part.FileName(), part, h.config.MaxUploadSize)
			_ = part.Close()
			if err != nil {
				h.rejectSaveError(w, err)
				return
			}
			saved = &s
		case hintField:
			if hint == "" {
				hint = readHint(part)
			}
			_ = part.Close()
		default:
			_ = part.Close()
		}
	}

	if saved == nil {
		h.rejectUpload(w, "rejected", "missing \"media\" file field", http.StatusBadRequest)
		return
	}

	id, err := h.submitter.Submit(r.Context(), orchestrator.Intake{
		SourcePath:     saved.Path,
		SizeBytes:      saved.SizeBytes,
		CapabilityHint: hint,
	})
	if err != nil {
		h.discard(saved)
		if errors.Is(err, orchestrator.ErrShuttingDown) {
			h.rejectUpload(w, "unavailable", "service is shutting down", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Str("path", saved.Path).Msg("failed to submit job")
		h.rejectUpload(w, "error", "failed to start conversion", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadSizeBytes.Observe(float64(saved.SizeBytes))
	h.logger.Info().
		Str("job_id", id).
		Str("path", saved.Path).
		Str("size", humanize.IBytes(uint64(saved.SizeBytes))).
		Str("ios_version", hint).
		Msg("upload accepted")

	writeJSONStatusCode(w, http.StatusOK, UploadResponse{JobID: id})
}

func readHint(part *multipart.Part) string {
	b, err := io.ReadAll(io.LimitReader(part, maxHintLen))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (h *Handlers) rejectBodyError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		h.rejectUpload(w, "too_large", "upload exceeds "+humanize.IBytes(uint64(h.config.MaxUploadSize)), http.StatusRequestEntityTooLarge)
		return
	}
	h.rejectUpload(w, "rejected", "malformed multipart body", http.StatusBadRequest)
}

func (h *Handlers) rejectSaveError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, filesystem.ErrTooLarge), errors.As(err, &tooBig):
		h.rejectUpload(w, "too_large", "upload exceeds "+humanize.IBytes(uint64(h.config.MaxUploadSize)), http.StatusRequestEntityTooLarge)
	case errors.Is(err, filesystem.ErrEmptyUpload):
		h.rejectUpload(w, "rejected", "uploaded file is empty", http.StatusBadRequest)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, multipart.ErrMessageTooLarge):
		h.rejectUpload(w, "rejected", "malformed multipart body", http.StatusBadRequest)
	default:
		h.logger.Error().Err(err).Msg("failed to save upload")
		h.rejectUpload(w, "error", "failed to save upload", http.StatusInternalServerError)
	}
}

func (h *Handlers) rejectUpload(w http.ResponseWriter, outcome, message string, statusCode int) {
	metrics.UploadsTotal.WithLabelValues(outcome).Inc()
	writeJSONError(w, message, statusCode)
}

func (h *Handlers) discard(saved *filesystem.Saved) {
	if saved == nil {
		return
	}
	if err := filesystem.RemoveIfExists(saved.Path); err != nil {
		h.logger.Warn().Err(err).Str("path", saved.Path).Msg("failed to remove rejected upload")
	}
}
