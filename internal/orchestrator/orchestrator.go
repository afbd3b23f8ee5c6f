package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"media-converter/internal/encoding"
	"media-converter/internal/filesystem"
	"media-converter/internal/jobs"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// ErrShuttingDown is returned by Submit once Shutdown has started.
var ErrShuttingDown = errors.New("orchestrator is shutting down")

const shutdownReason = "conversion interrupted: service shutting down"

// Intake is a saved upload ready for conversion.
type Intake struct {
	SourcePath     string
	SizeBytes      int64
	CapabilityHint string
}

// Runner executes the encoder cascade. *encoding.Cascade implements it.
type Runner interface {
	Run(ctx context.Context, src encoding.Source, policy encoding.Policy) (encoding.Outcome, error)
}

// Config tunes dispatch.
type Config struct {
	// Workers bounds concurrent conversions. Zero means one goroutine per
	// job with no bound.
	Workers int
	// ModernThreshold is the lowest capability hint major version that
	// gets the modern policy.
	ModernThreshold int
}

// Orchestrator accepts jobs and drives them to a terminal state in the
// background. Intake never waits for a conversion.
type Orchestrator struct {
	store     *jobs.Store
	runner    Runner
	threshold int
	sem       *semaphore.Weighted
	retry     filesystem.RetryConfig
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New creates an orchestrator that records state in store and converts with runner.
func New(store *jobs.Store, runner Runner, cfg Config) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	threshold := cfg.ModernThreshold
	if threshold <= 0 {
		threshold = encoding.DefaultModernThreshold
	}

	o := &Orchestrator{
		store:     store,
		runner:    runner,
		threshold: threshold,
		retry:     filesystem.DefaultRetryConfig(),
		logger:    logging.WithComponent("orchestrator"),
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.Workers > 0 {
		o.sem = semaphore.NewWeighted(int64(cfg.Workers))
	}
	return o
}

// Submit creates a Pending job for in and dispatches its conversion.
// It returns as soon as the job exists.
func (o *Orchestrator) Submit(ctx context.Context, in Intake) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return "", ErrShuttingDown
	}

	policy := encoding.PolicyForHint(in.CapabilityHint, o.threshold)
	mediaType := mediatypes.Classify(in.SourcePath)

	id := o.store.CreateWith(jobs.Spec{
		SourcePath:      in.SourcePath,
		SourceSizeBytes: in.SizeBytes,
		MediaType:       string(mediaType),
		Policy:          string(policy),
	})

	metrics.JobsSubmittedTotal.WithLabelValues(string(mediaType), string(policy)).Inc()
	o.logger.Info().
		Str("job_id", id).
		Str("source", in.SourcePath).
		Int64("size_bytes", in.SizeBytes).
		Str("media_type", string(mediaType)).
		Str("policy", string(policy)).
		Msg("job accepted")

	o.wg.Add(1)
	go o.run(id, encoding.Source{JobID: id, Path: in.SourcePath, MediaType: mediaType}, policy)

	return id, nil
}

func (o *Orchestrator) run(id string, src encoding.Source, policy encoding.Policy) {
	defer o.wg.Done()

	log := o.logger.With().Str("job_id", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("conversion panicked")
			o.fail(log, id, src.MediaType, fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	if o.sem != nil {
		metrics.JobsQueued.Inc()
		err := o.sem.Acquire(o.ctx, 1)
		metrics.JobsQueued.Dec()
		if err != nil {
			o.fail(log, id, src.MediaType, shutdownReason)
			return
		}
		defer o.sem.Release(1)
	}

	if err := o.store.MarkProcessing(id); err != nil {
		log.Warn().Err(err).Msg("could not mark job processing")
		return
	}
	log.Info().Msg("job processing")

	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(string(src.MediaType)).Observe(time.Since(start).Seconds())
	}()

	out, err := o.runner.Run(o.ctx, src, policy)
	if err != nil {
		o.fail(log, id, src.MediaType, failureReason(err))
		return
	}

	info, err := filesystem.StatWithRetry(out.Output, o.retry)
	if err != nil {
		o.fail(log, id, src.MediaType, fmt.Sprintf("unexpected fault: converted output unavailable: %v", err))
		return
	}

	if err := o.store.MarkCompletedBy(id, out.Output, info.Size(), string(out.Attempt.Tier)); err != nil {
		log.Warn().Err(err).Msg("could not mark job completed")
		return
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(src.MediaType), jobs.StatusCompleted.String()).Inc()
	log.Info().
		Str("output", out.Output).
		Int64("size_bytes", info.Size()).
		Str("tier", string(out.Attempt.Tier)).
		Dur("elapsed", time.Since(start)).
		Msg("job completed")
}

func (o *Orchestrator) fail(log zerolog.Logger, id string, mediaType mediatypes.MediaType, reason string) {
	if err := o.store.MarkFailed(id, reason); err != nil {
		log.Warn().Err(err).Msg("could not mark job failed")
		return
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(mediaType), jobs.StatusFailed.String()).Inc()
	log.Warn().Str("reason", reason).Msg("job failed")
}

func failureReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return shutdownReason
	}
	return err.Error()
}

// Shutdown stops accepting jobs, cancels running conversions and waits for
// every dispatched job to reach a terminal state or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info().Msg("all conversions stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for conversions: %w", ctx.Err())
	}
}
