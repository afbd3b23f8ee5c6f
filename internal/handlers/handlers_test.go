package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-converter/internal/jobs"
	"media-converter/internal/monitor"
	"media-converter/internal/orchestrator"
)

// fakeSubmitter records intakes and creates Pending jobs in a real store.
type fakeSubmitter struct {
	mu      sync.Mutex
	store   *jobs.Store
	intakes []orchestrator.Intake
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, in orchestrator.Intake) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.intakes = append(f.intakes, in)
	return f.store.Create(in.SourcePath, in.SizeBytes), nil
}

func (f *fakeSubmitter) last(t *testing.T) orchestrator.Intake {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.intakes)
	return f.intakes[len(f.intakes)-1]
}

type fakeMonitor struct{ snap monitor.Snapshot }

func (f fakeMonitor) Latest() (monitor.Snapshot, bool) { return f.snap, true }

type fixture struct {
	handlers  *Handlers
	store     *jobs.Store
	submitter *fakeSubmitter
	uploadDir string
	router    http.Handler
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	store := jobs.NewStore()
	sub := &fakeSubmitter{store: store}
	dir := t.TempDir()
	h := New(store, sub, Config{UploadDir: dir, MaxUploadSize: maxUpload, Accelerator: "none", Workers: 2})
	return &fixture{
		handlers:  h,
		store:     store,
		submitter: sub,
		uploadDir: dir,
		router:    h.Router(RouterOptions{LogHealthChecks: true, UploadRateLimit: 1000}),
	}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// multipartRequest builds a POST /upload with the file part first and then
// any extra fields.
func multipartRequest(t *testing.T, target, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("media", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUpload_Accepted(t *testing.T) {
	f := newFixture(t, 1<<20)

	rec := f.do(multipartRequest(t, "/upload", "IMG_0001.MOV", []byte("movie bytes"), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[UploadResponse](t, rec)
	require.NotEmpty(t, resp.JobID)

	in := f.submitter.last(t)
	assert.Equal(t, int64(len("movie bytes")), in.SizeBytes)
	assert.Empty(t, in.CapabilityHint)
	assert.Equal(t, f.uploadDir, filepath.Dir(in.SourcePath))
	assert.Contains(t, filepath.Base(in.SourcePath), "_IMG_0001.MOV")

	data, err := os.ReadFile(in.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "movie bytes", string(data))

	job, ok := f.store.Get(resp.JobID)
	require.True(t, ok)
	assert.Equal(t, jobs.StatusPending, job.Status)
}

func TestUpload_CapabilityHint(t *testing.T) {
	tests := []struct {
		name   string
		target string
		fields map[string]string
		want   string
	}{
		{"query parameter", "/upload?ios_version=17.2", nil, "17.2"},
		{"form field after file", "/upload", map[string]string{"ios_version": " 15.5 "}, "15.5"},
		{"query wins over form", "/upload?ios_version=18.0", map[string]string{"ios_version": "12.0"}, "18.0"},
		{"unrelated field ignored", "/upload", map[string]string{"device": "iPhone"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1<<20)
			rec := f.do(multipartRequest(t, tt.target, "clip.mp4", []byte("data"), tt.fields))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, f.submitter.last(t).CapabilityHint)
		})
	}
}

func TestUpload_Rejections(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		f := newFixture(t, 1<<20)
		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(`{"media":"x"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
	})

	t.Run("missing media field", func(t *testing.T) {
		f := newFixture(t, 1<<20)
		rec := f.do(multipartRequest(t, "/upload", "", nil, map[string]string{"ios_version": "17"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "media")
	})

	t.Run("empty file", func(t *testing.T) {
		f := newFixture(t, 1<<20)
		rec := f.do(multipartRequest(t, "/upload", "empty.mov", nil, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, uploadedFiles(t, f.uploadDir))
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, 16)
		rec := f.do(multipartRequest(t, "/upload", "big.mov", bytes.Repeat([]byte("x"), 1024), nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, uploadedFiles(t, f.uploadDir))
		assert.Zero(t, f.store.Len())
	})

	t.Run("truncated body", func(t *testing.T) {
		f := newFixture(t, 1<<20)
		full := multipartRequest(t, "/upload", "clip.mov", []byte("some bytes"), nil)
		body, err := io.ReadAll(full.Body)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body[:len(body)/2]))
		req.Header.Set("Content-Type", full.Header.Get("Content-Type"))

		rec := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, uploadedFiles(t, f.uploadDir))
	})
}

func TestUpload_SubmitFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"shutting down", orchestrator.ErrShuttingDown, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1<<20)
			f.submitter.err = tt.err

			rec := f.do(multipartRequest(t, "/upload", "clip.mov", []byte("data"), nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, uploadedFiles(t, f.uploadDir), "rejected upload should be removed")
		})
	}
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, 1<<20)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pending := f.store.Create("/uploads/a.mov", 100)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/status/"+pending, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending","original_size_bytes":100,"converted_size_bytes":null}`, rec.Body.String())

	completed := f.store.Create("/uploads/b.mov", 100)
	require.NoError(t, f.store.MarkProcessing(completed))
	require.NoError(t, f.store.MarkCompleted(completed, "/converted/b_hevc.mp4", 40))
	rec = f.do(httptest.NewRequest(http.MethodGet, "/status/"+completed, nil))
	assert.JSONEq(t, `{"status":"completed","original_size_bytes":100,"converted_size_bytes":40}`, rec.Body.String())

	failed := f.store.Create("/uploads/c.mov", 100)
	require.NoError(t, f.store.MarkProcessing(failed))
	require.NoError(t, f.store.MarkFailed(failed, "universal encode failed: invalid data"))
	rec = f.do(httptest.NewRequest(http.MethodGet, "/status/"+failed, nil))
	got := decode[StatusResponse](t, rec)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "universal encode failed: invalid data", got.Error)
	assert.Nil(t, got.ConvertedSizeBytes)
}

func TestDownload(t *testing.T) {
	f := newFixture(t, 1<<20)
	outDir := t.TempDir()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/download/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pending := f.store.Create("/uploads/a.heic", 10)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/download/"+pending, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "pending")

	tests := []struct {
		name        string
		file        string
		contentType string
	}{
		{"avif", "a_av1.avif", "image/avif"},
		{"mp4", "b_hevc.mp4", "video/mp4"},
		{"jpeg", "c.jpg", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(outDir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte("converted "+tt.name), 0o644))

			id := f.store.Create("/uploads/src", 100)
			require.NoError(t, f.store.MarkProcessing(id))
			require.NoError(t, f.store.MarkCompleted(id, path, int64(len("converted "+tt.name))))

			rec := f.do(httptest.NewRequest(http.MethodGet, "/download/"+id, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="`+tt.file+`"`, rec.Header().Get("Content-Disposition"))
			assert.Equal(t, "converted "+tt.name, rec.Body.String())
		})
	}

	gone := f.store.Create("/uploads/src", 100)
	require.NoError(t, f.store.MarkProcessing(gone))
	require.NoError(t, f.store.MarkCompleted(gone, filepath.Join(outDir, "deleted.mp4"), 5))
	rec = f.do(httptest.NewRequest(http.MethodGet, "/download/"+gone, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProbesAndVersion(t *testing.T) {
	f := newFixture(t, 1<<20)

	for _, path := range []string{"/health", "/healthz"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodHead, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["version"])
}

func TestGetStats(t *testing.T) {
	f := newFixture(t, 1<<20)
	f.store.Create("/a", 1)
	done := f.store.Create("/b", 1)
	require.NoError(t, f.store.MarkProcessing(done))
	require.NoError(t, f.store.MarkFailed(done, "x"))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	got := decode[StatsResponse](t, rec)
	assert.Equal(t, JobCounts{Pending: 1, Failed: 1, Total: 2}, got.Jobs)
	assert.Equal(t, "none", got.Accelerator)
	assert.Equal(t, 2, got.Workers)
	assert.Nil(t, got.Host)

	f.handlers.SetMonitor(fakeMonitor{snap: monitor.Snapshot{CPUPercent: 42, SampledAt: time.Now()}})
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	got = decode[StatsResponse](t, rec)
	require.NotNil(t, got.Host)
	assert.Equal(t, 42.0, got.Host.CPUPercent)
}

func TestRouter_CORSAndRateLimit(t *testing.T) {
	store := jobs.NewStore()
	h := New(store, &fakeSubmitter{store: store}, Config{UploadDir: t.TempDir(), MaxUploadSize: 1 << 20})
	router := h.Router(RouterOptions{UploadRateLimit: 1})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/upload", "a.mov", []byte("x"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/upload", "b.mov", []byte("x"), nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
