package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"media-converter/internal/logging"
)

// Job states as reported by the server.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ErrJobFailed is returned by Wait when the job ends in the error state.
var ErrJobFailed = errors.New("conversion failed")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// JobStatus mirrors GET /status/{job_id}.
type JobStatus struct {
	Status             string `json:"status"`
	OriginalSizeBytes  int64  `json:"original_size_bytes"`
	ConvertedSizeBytes *int64 `json:"converted_size_bytes"`
	Error              string `json:"error,omitempty"`
}

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// Client talks to a conversion server with retries on transient failures.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// Option customises the retry behaviour.
type Option func(*retryablehttp.Client)

// WithRetry overrides the retry budget and backoff bounds.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *retryablehttp.Client) {
		c.HTTPClient = hc
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = retryLogger{logging.WithComponent("client")}
	// hand the final response back so error bodies can be decoded
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	for _, opt := range opts {
		opt(rc)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

func (c *Client) do(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// Upload sends the file at path and returns the new job id. iosVersion may
// be empty. The file is streamed from disk and reopened for each retry.
func (c *Client) Upload(ctx context.Context, path, iosVersion string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	head, tail, contentType, err := multipartFrame(filepath.Base(path), iosVersion)
	if err != nil {
		return "", err
	}

	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return readCloser{
			Reader: io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail)),
			Closer: f,
		}, nil
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url("/upload"), body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(head)) + info.Size() + int64(len(tail))

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.JobID == "" {
		return "", errors.New("server returned no job id")
	}
	return out.JobID, nil
}

// multipartFrame renders everything around the file bytes of the upload
// body so the file itself can be streamed.
func multipartFrame(fileName, iosVersion string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if iosVersion != "" {
		if err := mw.WriteField("ios_version", iosVersion); err != nil {
			return nil, nil, "", err
		}
	}
	if _, err := mw.CreateFormFile("media", fileName); err != nil {
		return nil, nil, "", err
	}
	head = append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, nil, "", err
	}
	tail = append([]byte(nil), buf.Bytes()...)

	return head, tail, mw.FormDataContentType(), nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Status fetches a job's state.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	err := c.getJSON(ctx, "/status/"+url.PathEscape(jobID), &st)
	return st, err
}

// Wait polls until the job is terminal. A failed job returns its status and
// an error wrapping ErrJobFailed.
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration, onUpdate func(JobStatus)) (JobStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return st, err
		}
		if onUpdate != nil && st.Status != last {
			onUpdate(st)
			last = st.Status
		}
		switch st.Status {
		case StatusCompleted:
			return st, nil
		case StatusError:
			return st, fmt.Errorf("%w: %s", ErrJobFailed, st.Error)
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download writes the converted file of a completed job to w and returns
// the server's file name and the bytes written.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) (string, int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url("/download/"+url.PathEscape(jobID)), nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	name := jobID
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = filepath.Base(params["filename"])
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return name, n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	return name, n, nil
}

// Health returns the server's health status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := c.getJSON(ctx, "/health", &out)
	return out.Status, err
}

// Stats mirrors GET /api/stats.
type Stats struct {
	Jobs struct {
		Pending    int `json:"pending"`
		Processing int `json:"processing"`
		Completed  int `json:"completed"`
		Failed     int `json:"failed"`
		Total      int `json:"total"`
	} `json:"jobs"`
	Accelerator string `json:"accelerator"`
	Workers     int    `json:"workers"`
	Uptime      string `json:"uptime"`
	Host        *struct {
		CPUPercent    float64 `json:"cpuPercent"`
		MemoryPercent float64 `json:"memoryPercent"`
		Busy          bool    `json:"busy"`
	} `json:"host,omitempty"`
}

// Stats fetches service statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.getJSON(ctx, "/api/stats", &st)
	return st, err
}

// Version fetches build information.
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	err := c.getJSON(ctx, "/version", &out)
	return out, err
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
