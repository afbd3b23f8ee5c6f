package encoding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// Request is a single encode handed to a collaborator.
type Request struct {
	Input   string
	Output  string
	Attempt Attempt
}

// Encoder runs one attempt synchronously. Implementations must honour ctx,
// must not modify Input and must write only to Output.
type Encoder interface {
	Encode(ctx context.Context, req Request) error
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ctx context.Context, req Request) error

// Encode calls f(ctx, req).
func (f EncoderFunc) Encode(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Source is the input of a cascade run.
type Source struct {
	JobID     string
	Path      string
	MediaType mediatypes.MediaType
}

// Outcome is the result of one tier.
type Outcome struct {
	Attempt  Attempt
	Output   string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the tier produced its output.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Output != ""
}

// Cascade runs the attempts of a Table in order until one succeeds.
type Cascade struct {
	encoder   Encoder
	table     Table
	outputDir string
	logger    zerolog.Logger
}

// NewCascade creates a cascade writing outputs into outputDir.
func NewCascade(encoder Encoder, table Table, outputDir string) *Cascade {
	return &Cascade{
		encoder:   encoder,
		table:     table,
		outputDir: outputDir,
		logger:    logging.WithComponent("cascade"),
	}
}

// Attempts returns the configured attempts for policy and media type.
func (c *Cascade) Attempts(policy Policy, mediaType mediatypes.MediaType) []Attempt {
	return c.table.Lookup(policy, mediaType)
}

// OutputPath returns where attempt writes its output for the given source.
// The result never names the source itself: when the natural name would,
// the codec is appended to the stem.
func (c *Cascade) OutputPath(source string, attempt Attempt) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base)) + attempt.Suffix
	out := filepath.Join(c.outputDir, stem+attempt.Extension)
	if samePath(out, source) {
		codec := attempt.Codec
		if codec == "" {
			codec = string(attempt.Tier)
		}
		out = filepath.Join(c.outputDir, stem+"_"+codec+attempt.Extension)
	}
	return out
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
	}
	return strings.EqualFold(absA, absB)
}

// Run executes the cascade for src. Every tier starts from the original
// input and gets its own deadline. The first successful outcome is returned
// and no later tier runs. When every tier fails the last tier's outcome and
// error are returned; earlier errors are only logged. Cancelling ctx stops
// the cascade after the running tier returns.
func (c *Cascade) Run(ctx context.Context, src Source, policy Policy) (Outcome, error) {
	attempts := c.table.Lookup(policy, src.MediaType)
	if len(attempts) == 0 {
		return Outcome{}, fmt.Errorf("%w: %s %s", ErrNoAttempts, policy, src.MediaType)
	}

	log := c.logger.With().
		Str("job_id", src.JobID).
		Str("media_type", string(src.MediaType)).
		Str("policy", string(policy)).
		Logger()

	var last Outcome
	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return last, fmt.Errorf("conversion interrupted before %s tier: %w", attempt.Tier, err)
		}

		out := c.runAttempt(ctx, src, attempt)
		result := resultLabel(out.Err)
		metrics.EncodeAttemptsTotal.WithLabelValues(string(src.MediaType), string(attempt.Tier), result).Inc()
		metrics.EncodeAttemptDuration.WithLabelValues(string(src.MediaType), string(attempt.Tier)).Observe(out.Duration.Seconds())

		if out.Succeeded() {
			log.Info().
				Str("tier", string(attempt.Tier)).
				Str("output", out.Output).
				Dur("duration", out.Duration).
				Msg("encode succeeded")
			return out, nil
		}

		log.Warn().
			Err(out.Err).
			Str("tier", string(attempt.Tier)).
			Int("attempt", i+1).
			Int("attempts", len(attempts)).
			Dur("duration", out.Duration).
			Msg("encode tier failed")

		if err := filesystem.RemoveIfExists(out.Output); err != nil {
			log.Warn().Err(err).Str("output", out.Output).Msg("failed to remove partial output")
		}

		last = out
		if ctx.Err() != nil {
			return last, last.Err
		}
	}

	return last, last.Err
}

func (c *Cascade) runAttempt(ctx context.Context, src Source, attempt Attempt) Outcome {
	out := Outcome{Attempt: attempt, Output: c.OutputPath(src.Path, attempt)}

	actx := ctx
	cancel := context.CancelFunc(func() {})
	if attempt.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, attempt.Timeout)
	}
	defer cancel()

	start := time.Now()
	err := c.invoke(actx, Request{Input: src.Path, Output: out.Output, Attempt: attempt})
	out.Duration = time.Since(start)

	if err == nil {
		err = checkOutput(out.Output)
		if err != nil {
			err = &EncodeFailedError{Tier: attempt.Tier, Detail: err.Error(), Err: err}
		}
	}

	out.Err = classify(ctx, actx, attempt, err)
	return out
}

// invoke calls the encoder and turns a panic into a tier failure.
func (c *Cascade) invoke(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EncodeFailedError{Tier: req.Attempt.Tier, Detail: fmt.Sprintf("encoder panic: %v", r)}
		}
	}()
	return c.encoder.Encode(ctx, req)
}

func classify(parent, actx context.Context, attempt Attempt, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return fmt.Errorf("%s tier interrupted: %w", attempt.Tier, parent.Err())
	}
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &EncodeTimeoutError{Tier: attempt.Tier, Timeout: attempt.Timeout}
	}

	var failed *EncodeFailedError
	if errors.As(err, &failed) {
		return err
	}
	var timeout *EncodeTimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	return &EncodeFailedError{Tier: attempt.Tier, Detail: err.Error(), Err: err}
}

func checkOutput(path string) error {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("encoder reported success but output is missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("encoder reported success but output is empty")
	}
	return nil
}

func resultLabel(err error) string {
	var timeout *EncodeTimeoutError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
