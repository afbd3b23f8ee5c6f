package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"map", map[string]string{"status": "ok"}, `{"status":"ok"}`},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"null", nil, `null`},
		{"upload response", UploadResponse{JobID: "abc"}, `{"job_id":"abc"}`},
		{"html is escaped", map[string]string{"msg": "<b>"}, `{"msg":"<b>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.input)
			assert.JSONEq(t, tt.expected, w.Body.String())
		})
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, make(chan int))
	assert.Empty(t, w.Body.String())
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, "job not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "job not found", body["error"])
}

func TestWriteJSONStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONStatus(w, statusHealthy)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestStatusResponse_ConvertedSizeNullUntilCompleted(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, StatusResponse{Status: "pending", OriginalSizeBytes: 10})
	assert.JSONEq(t, `{"status":"pending","original_size_bytes":10,"converted_size_bytes":null}`, w.Body.String())

	size := int64(4)
	w = httptest.NewRecorder()
	writeJSON(w, StatusResponse{Status: "completed", OriginalSizeBytes: 10, ConvertedSizeBytes: &size})
	assert.JSONEq(t, `{"status":"completed","original_size_bytes":10,"converted_size_bytes":4}`, w.Body.String())
}
