// Package main implements convertctl, a small command line client for the
// media conversion service.
//
// Each subcommand maps onto one HTTP endpoint: upload submits a file and can
// wait for and fetch the result, status and wait poll jobs, download saves a
// converted file, and health, stats and version query the service itself.
// Requests go through internal/client, which retries throttled and failed
// calls. Pass --json for machine readable output.
package main
