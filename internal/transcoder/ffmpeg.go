package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"media-converter/internal/encoding"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// ErrNoHardwareEncoder is returned for hardware tiers when no accelerator
// offers the requested codec.
var ErrNoHardwareEncoder = errors.New("no hardware encoder available")

const stderrTailBytes = 4096

// FFmpeg runs encode attempts as ffmpeg processes.
type FFmpeg struct {
	path        string
	caps        Capabilities
	vaapiDevice string
	logger      zerolog.Logger

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// NewFFmpeg creates an encoder using the ffmpeg binary at path.
func NewFFmpeg(path string, caps Capabilities) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{
		path:      path,
		caps:      caps,
		logger:    logging.WithComponent("transcoder"),
		processes: make(map[string]*exec.Cmd),
	}
}

// SetVAAPIDevice overrides the render node used for VA-API encodes.
func (f *FFmpeg) SetVAAPIDevice(device string) {
	f.vaapiDevice = device
}

// Capabilities returns what was detected at startup.
func (f *FFmpeg) Capabilities() Capabilities {
	return f.caps
}

// Encode runs one attempt. The process is killed when ctx ends.
func (f *FFmpeg) Encode(ctx context.Context, req encoding.Request) error {
	encoder, err := f.resolveEncoder(req.Attempt)
	if err != nil {
		return &encoding.EncodeFailedError{Tier: req.Attempt.Tier, Detail: err.Error(), Err: err}
	}

	args := buildArgs(req, encoder, f.caps.Accelerator, f.vaapiDevice)
	cmd := exec.CommandContext(ctx, f.path, args...)
	cmd.WaitDelay = 5 * time.Second

	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	f.logger.Debug().
		Str("tier", string(req.Attempt.Tier)).
		Str("encoder", encoder).
		Strs("args", args).
		Msg("starting ffmpeg")

	if err := cmd.Start(); err != nil {
		return &encoding.EncodeFailedError{Tier: req.Attempt.Tier, Detail: fmt.Sprintf("start ffmpeg: %v", err), Err: err}
	}

	f.track(req.Output, cmd)
	defer f.untrack(req.Output)

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = err.Error()
	}
	return &encoding.EncodeFailedError{Tier: req.Attempt.Tier, Detail: detail, Err: err}
}

func (f *FFmpeg) resolveEncoder(a encoding.Attempt) (string, error) {
	if a.Tier == encoding.TierHardware {
		name, ok := f.caps.HardwareEncoder(a.Codec)
		if !ok {
			return "", fmt.Errorf("%w for %s (accelerator: %s)", ErrNoHardwareEncoder, a.Codec, f.caps.Accelerator)
		}
		return name, nil
	}
	if a.Encoder == "" {
		return "", fmt.Errorf("attempt for %s has no encoder", a.Codec)
	}
	return a.Encoder, nil
}

func (f *FFmpeg) track(key string, cmd *exec.Cmd) {
	f.processMu.Lock()
	f.processes[key] = cmd
	f.processMu.Unlock()
	metrics.TranscoderProcessesRunning.Inc()
}

func (f *FFmpeg) untrack(key string) {
	f.processMu.Lock()
	delete(f.processes, key)
	f.processMu.Unlock()
	metrics.TranscoderProcessesRunning.Dec()
}

// Running returns the number of live ffmpeg processes.
func (f *FFmpeg) Running() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup kills every running ffmpeg process.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for output, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process for: %s", output)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process for %s: %v", output, err)
			}
		}
	}
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
