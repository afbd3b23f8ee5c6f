package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"media-converter/internal/middleware"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	LogHealthChecks bool
	UploadRateLimit int
	MetricsEnabled  bool
}

// Router registers every API route on a new mux router.
func (h *Handlers) Router(opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.LogHealthChecks = opts.LogHealthChecks
	r.Use(middleware.CORS)
	r.Use(middleware.Logger(logCfg))
	if opts.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	upload := middleware.UploadRateLimit(opts.UploadRateLimit)(http.HandlerFunc(h.Upload))
	r.Handle("/upload", upload).Methods(http.MethodPost, http.MethodOptions).Name("upload")
	r.HandleFunc("/status/{job_id}", h.GetStatus).Methods(http.MethodGet).Name("status")
	r.HandleFunc("/download/{job_id}", h.Download).Methods(http.MethodGet, http.MethodHead).Name("download")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)

	return r
}
