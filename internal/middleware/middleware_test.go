package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-converter/internal/metrics"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	assert.Equal(t, http.StatusOK, rw.statusCode)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("missing"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(n), rw.bytesWritten)
	assert.Equal(t, rec, rw.Unwrap())
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"cr\r\nlf", "cr  lf"},
		{"null\x00byte", "nullbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tok", "tab\tok"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLogField(tt.in), "input %q", tt.in)
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:41234"
	assert.Equal(t, "10.0.0.5", getClientIP(r))

	r.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(r))
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		config     LoggingConfig
		wantLogged bool
	}{
		{"regular request", "/status/abc", DefaultLoggingConfig(), true},
		{"health logged by default", "/health", DefaultLoggingConfig(), true},
		{"health suppressed", "/healthz", LoggingConfig{}, false},
		{"skip path", "/metrics", DefaultLoggingConfig(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := LoggerWith(zerolog.New(&buf), tt.config)(http.HandlerFunc(okHandler))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, "ok", rec.Body.String())

			if !tt.wantLogged {
				assert.Zero(t, buf.Len())
				return
			}

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, float64(http.StatusOK), entry["status"])
			assert.Equal(t, float64(2), entry["bytes"])
			assert.Equal(t, "info", entry["level"])
		})
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	for status, level := range map[int]string{
		http.StatusBadRequest:          "warn",
		http.StatusNotFound:            "warn",
		http.StatusInternalServerError: "error",
	} {
		var buf bytes.Buffer
		handler := LoggerWith(zerolog.New(&buf), DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, level, entry["level"], "status %d", status)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/upload", "/upload"},
		{"/status/5f0c3a", "/status/{job_id}"},
		{"/download/5f0c3a", "/download/{job_id}"},
		{"/api/stats", "/api/stats"},
		{"/a/b/c/d/e", "/a/b/c/{path}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path))
	}
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/status/{job_id}", okHandler).Methods(http.MethodGet)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/status/{job_id}", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"one", "two", "three"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status/"+id, nil))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}

func TestMetrics_SkipPaths(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(okHandler))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestRateLimit(t *testing.T) {
	handler := UploadRateLimit(2)(http.HandlerFunc(okHandler))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, send("198.51.100.1").Code)

	limited := send("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "application/json", limited.Header().Get("Content-Type"))
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "too many requests")

	// other clients have their own budget
	assert.Equal(t, http.StatusOK, send("198.51.100.2").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := UploadRateLimit(0)(http.HandlerFunc(okHandler))
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/x", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
