package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write, or the whole stream, ran past
	// its deadline. This typically means the client is reading too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled before
	// the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config configures a Writer.
type Config struct {
	// WriteTimeout bounds each individual write (0 = no per-write deadline).
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited).
	MaxDuration time.Duration
	// ProgressEvery is the byte interval between OnProgress calls.
	ProgressEvery int64
	// OnProgress is called roughly every ProgressEvery bytes.
	OnProgress func(bytesWritten int64, elapsed time.Duration)
}

// DefaultConfig returns defaults suited to multi-gigabyte downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:  30 * time.Second,
		ProgressEvery: 16 << 20,
	}
}

// Writer is an http.ResponseWriter that puts a deadline on every write, so a
// stalled client releases its connection instead of pinning it forever. It
// can be handed to http.ServeContent, which keeps Range support intact.
type Writer struct {
	http.ResponseWriter

	ctx    context.Context
	rc     *http.ResponseController
	config Config
	start  time.Time

	mu           sync.Mutex
	written      int64
	nextProgress int64
	deadlines    bool
	closed       bool
	err          error
}

// NewWriter wraps w. ctx is normally the request context.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		ResponseWriter: w,
		ctx:            ctx,
		rc:             http.NewResponseController(w),
		config:         config,
		start:          time.Now(),
		nextProgress:   config.ProgressEvery,
		deadlines:      config.WriteTimeout > 0,
	}
}

// Write implements io.Writer. The first failure is kept and returned by Err.
func (sw *Writer) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.write(p)
	if err != nil && sw.err == nil {
		sw.err = err
	}
	return n, err
}

func (sw *Writer) write(p []byte) (int, error) {
	if sw.closed {
		return 0, ErrStreamCanceled
	}
	if err := sw.ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, ErrClientGone
		}
		return 0, fmt.Errorf("%w: %v", ErrStreamCanceled, err)
	}
	if sw.config.MaxDuration > 0 && time.Since(sw.start) > sw.config.MaxDuration {
		return 0, ErrWriteTimeout
	}

	if sw.deadlines {
		// writers that cannot take a deadline (recorders, some proxies) are
		// streamed without one
		if err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout)); err != nil {
			sw.deadlines = false
		}
	}

	n, err := sw.ResponseWriter.Write(p)
	sw.written += int64(n)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, fmt.Errorf("%w: %v", ErrWriteTimeout, err)
		}
		return n, err
	}

	if sw.config.OnProgress != nil && sw.config.ProgressEvery > 0 && sw.written >= sw.nextProgress {
		for sw.nextProgress <= sw.written {
			sw.nextProgress += sw.config.ProgressEvery
		}
		sw.config.OnProgress(sw.written, time.Since(sw.start))
	}
	return n, nil
}

// Flush sends buffered data to the client.
func (sw *Writer) Flush() {
	_ = sw.rc.Flush()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *Writer) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Close stops further writes and clears the write deadline so the
// connection can be reused. It is safe to call more than once.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}
	sw.closed = true
	if sw.deadlines {
		_ = sw.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Err returns the first write error, if any.
func (sw *Writer) Err() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}

// Stats returns the bytes written so far and the time since the writer was created.
func (sw *Writer) Stats() (bytesWritten int64, duration time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.written, time.Since(sw.start)
}
