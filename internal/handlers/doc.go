// Package handlers provides the HTTP API of the conversion service.
//
//   - POST /upload: multipart "media" file plus optional ios_version hint; returns {"job_id"}
//   - GET /status/{job_id}: job state, original and converted sizes
//   - GET /download/{job_id}: the converted file once the job is completed
//   - GET /health, /healthz, /livez: probes
//   - GET /version, /api/stats: build info and job counts
//
// Handlers never mutate job state; transport errors are returned to the
// caller as JSON {"error": "..."} bodies.
package handlers
