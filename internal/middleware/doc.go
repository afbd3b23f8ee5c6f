// Package middleware provides HTTP middleware for the conversion server.
//
// It includes:
//   - Structured request logging with optional health check filtering
//   - Prometheus request metrics labelled by route template
//   - Per-IP rate limiting for uploads
//   - Permissive CORS
package middleware
