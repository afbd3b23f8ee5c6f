package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() Option {
	return WithRetry(2, time.Millisecond, 5*time.Millisecond)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUpload(t *testing.T) {
	var gotHint, gotName, gotBody string
	var gotLength int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		gotLength = r.ContentLength

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotHint = r.FormValue("ios_version")
		f, hdr, err := r.FormFile("media")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)

		writeJSON(w, http.StatusOK, map[string]string{"job_id": "job-123"})
	}))
	defer srv.Close()

	path := tempFile(t, "IMG_0042.HEIC", "heic bytes")
	id, err := New(srv.URL, fastRetry()).Upload(context.Background(), path, "17.4")
	require.NoError(t, err)

	assert.Equal(t, "job-123", id)
	assert.Equal(t, "17.4", gotHint)
	assert.Equal(t, "IMG_0042.HEIC", gotName)
	assert.Equal(t, "heic bytes", gotBody)
	assert.Positive(t, gotLength)
}

func TestUpload_RetriesWithFullBody(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, _, err := r.FormFile("media")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		_ = f.Close()
		assert.Equal(t, "clip bytes", string(data), "attempt %d", attempts.Load()+1)

		if attempts.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"job_id": "after-retry"})
	}))
	defer srv.Close()

	id, err := New(srv.URL, fastRetry()).Upload(context.Background(), tempFile(t, "clip.mov", "clip bytes"), "")
	require.NoError(t, err)
	assert.Equal(t, "after-retry", id)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestUpload_ClientErrorsAreNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds 2.0 GiB"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, fastRetry()).Upload(context.Background(), tempFile(t, "big.mov", "x"), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
	assert.Equal(t, "upload exceeds 2.0 GiB", apiErr.Message)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestUpload_MissingFile(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mov"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status/done":
			size := int64(42)
			writeJSON(w, http.StatusOK, JobStatus{Status: StatusCompleted, OriginalSizeBytes: 100, ConvertedSizeBytes: &size})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		}
	}))
	defer srv.Close()
	c := New(srv.URL, fastRetry())

	st, err := c.Status(context.Background(), "done")
	require.NoError(t, err)
	assert.True(t, st.Terminal())
	require.NotNil(t, st.ConvertedSizeBytes)
	assert.Equal(t, int64(42), *st.ConvertedSizeBytes)

	_, err = c.Status(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "server returned 404: job not found")
}

func TestWait(t *testing.T) {
	sequence := []string{StatusPending, StatusProcessing, StatusProcessing, StatusCompleted}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(sequence) {
			i = len(sequence) - 1
		}
		writeJSON(w, http.StatusOK, JobStatus{Status: sequence[i]})
	}))
	defer srv.Close()

	var seen []string
	st, err := New(srv.URL, fastRetry()).Wait(context.Background(), "id", time.Millisecond, func(s JobStatus) {
		seen = append(seen, s.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, []string{StatusPending, StatusProcessing, StatusCompleted}, seen)
}

func TestWait_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, JobStatus{Status: StatusError, Error: "universal encode failed: bad input"})
	}))
	defer srv.Close()

	st, err := New(srv.URL, fastRetry()).Wait(context.Background(), "id", time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.ErrorContains(t, err, "bad input")
	assert.Equal(t, StatusError, st.Status)
}

func TestWait_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, JobStatus{Status: StatusProcessing})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, fastRetry()).Wait(ctx, "id", 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/download/pending" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job not ready, current status: pending"})
			return
		}
		w.Header().Set("Content-Type", "image/avif")
		w.Header().Set("Content-Disposition", `attachment; filename="abc_photo_av1.avif"`)
		_, _ = w.Write([]byte("avif payload"))
	}))
	defer srv.Close()
	c := New(srv.URL, fastRetry())

	var buf bytes.Buffer
	name, n, err := c.Download(context.Background(), "done", &buf)
	require.NoError(t, err)
	assert.Equal(t, "abc_photo_av1.avif", name)
	assert.Equal(t, int64(len("avif payload")), n)
	assert.Equal(t, "avif payload", buf.String())

	_, _, err = c.Download(context.Background(), "pending", &buf)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestHealthStatsVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		case "/version":
			writeJSON(w, http.StatusOK, map[string]string{"version": "1.2.3", "commit": "abc"})
		case "/api/stats":
			_, _ = w.Write([]byte(`{"jobs":{"pending":1,"processing":2,"completed":3,"failed":0,"total":6},"accelerator":"vaapi","workers":4,"uptime":"1m0s","host":{"cpuPercent":12.5,"memoryPercent":40,"busy":false}}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL+"/", fastRetry())

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v["version"])

	st, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, st.Jobs.Total)
	assert.Equal(t, "vaapi", st.Accelerator)
	require.NotNil(t, st.Host)
	assert.Equal(t, 12.5, st.Host.CPUPercent)
}

func TestHealth_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, WithRetry(1, time.Millisecond, time.Millisecond)).Health(context.Background())
	assert.Error(t, err)
}
