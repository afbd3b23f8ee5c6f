package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"media-converter/internal/encoding"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/media"
	"media-converter/internal/metrics"
	"media-converter/internal/monitor"
	"media-converter/internal/orchestrator"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()
	logging.Configure(logging.Config{Service: "media-converter"})

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(monitor.ConfigureMemoryLimit(config.MemoryLimit, config.MemoryRatio))

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"uploads":   config.UploadDir,
		"converted": config.ConvertedDir,
	}))

	// Still-image encoder
	useVips := false
	if config.VipsEnabled {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, falling back to imaging: %v", err)
		} else {
			useVips = true
		}
	}
	startup.LogVipsInit(useVips)

	// ffmpeg and hardware acceleration
	mode, err := transcoder.ParseAccelerator(config.GPUAccel)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	caps, err := transcoder.DetectCapabilities(context.Background(), config.FFmpegPath, mode)
	if err != nil {
		logging.Warn("Could not probe ffmpeg encoders, ffmpeg tiers will fail: %v", err)
	}
	startup.LogTranscoderInit(config.FFmpegPath, string(caps.Accelerator), len(caps.Encoders))
	ffmpeg := transcoder.NewFFmpeg(config.FFmpegPath, caps)
	if config.VAAPIDevice != "" {
		ffmpeg.SetVAAPIDevice(config.VAAPIDevice)
	}

	cascade := encoding.NewCascade(&transcoder.Router{
		FFmpeg: ffmpeg,
		Still:  media.NewStillEncoder(useVips),
	}, encoding.DefaultTable(), config.ConvertedDir)

	// Job store and orchestrator
	store := jobs.NewStore()
	orch := orchestrator.New(store, cascade, orchestrator.Config{
		Workers:         config.ConvertWorkers,
		ModernThreshold: config.ModernMinVersion,
	})
	startup.LogOrchestratorInit(config.ConvertWorkers, config.ModernMinVersion, config.JobRetention)

	collector := metrics.NewCollector(store, collectorInterval)
	collector.Start()

	mon := monitor.New(monitor.DefaultConfig())
	mon.Start()

	h := handlers.New(store, orch, handlers.Config{
		UploadDir:     config.UploadDir,
		MaxUploadSize: config.MaxUploadSize,
		Accelerator:   string(ffmpeg.Capabilities().Accelerator),
		Workers:       config.ConvertWorkers,
	})
	h.SetMonitor(mon)

	router := h.Router(handlers.RouterOptions{
		LogHealthChecks: config.LogHealthChecks,
		UploadRateLimit: config.UploadRateLimit,
		MetricsEnabled:  config.MetricsEnabled,
	})
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := newServer(":"+config.Port, router)
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(":" + config.MetricsPort)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// stopRun ends background loops once shutdown begins
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	g, ctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return serve(srv) })
	if metricsSrv != nil {
		g.Go(func() error { return serve(metricsSrv) })
	}
	if config.JobRetention > 0 {
		g.Go(func() error {
			runRetention(ctx, store, config.JobRetention)
			return nil
		})
	}

	g.Go(func() error {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
		case <-ctx.Done():
			startup.LogShutdownInitiated("server error")
		}
		signal.Stop(sigChan)
		stopRun()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return shutdown(shutdownCtx, components{
			server:        srv,
			metricsServer: metricsSrv,
			orchestrator:  orch,
			ffmpeg:        ffmpeg,
			collector:     collector,
			monitor:       mon,
			vips:          useVips,
		})
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := g.Wait(); err != nil {
		startup.LogFatal("Server error: %v", err)
	}
}
