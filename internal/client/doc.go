// Package client is a Go client for the conversion server's HTTP API.
//
// Requests go through go-retryablehttp: connection errors, 429 and 5xx
// responses are retried with exponential backoff (three retries between one
// and five seconds by default). Uploads stream the file from disk and
// reopen it for each attempt.
package client
