package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/startup"
)

// newServer builds the API server. Uploads and downloads can run for
// minutes, so only the header read is bounded.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// serve runs srv until it is shut down. A clean shutdown is not an error.
func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type stopper interface {
	Stop()
}

type cleaner interface {
	Running() int
	Cleanup()
}

// components are the long running parts torn down on exit, in field order.
type components struct {
	server        *http.Server
	metricsServer *http.Server
	orchestrator  shutdowner
	ffmpeg        cleaner
	collector     stopper
	monitor       stopper
	vips          bool
}

// shutdown stops accepting requests first so no new jobs arrive, then
// interrupts conversions and releases the encoders. Failures are logged and
// the remaining steps still run.
func shutdown(ctx context.Context, c components) error {
	if c.server != nil {
		startup.LogShutdownStep("Shutting down HTTP server")
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}
	}

	if c.orchestrator != nil {
		startup.LogShutdownStep("Interrupting conversions")
		if err := c.orchestrator.Shutdown(ctx); err != nil {
			logging.Warn("Orchestrator shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Conversions stopped")
		}
	}

	if c.ffmpeg != nil {
		startup.LogShutdownStep("Cleaning up ffmpeg processes")
		if n := c.ffmpeg.Running(); n > 0 {
			logging.Warn("Killing %d ffmpeg processes still running", n)
		}
		c.ffmpeg.Cleanup()
		startup.LogShutdownStepComplete("ffmpeg cleanup complete")
	}

	if c.collector != nil {
		c.collector.Stop()
	}
	if c.monitor != nil {
		c.monitor.Stop()
	}

	if c.metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if c.vips {
		media.ShutdownVips()
	}

	startup.LogShutdownComplete()
	return nil
}
