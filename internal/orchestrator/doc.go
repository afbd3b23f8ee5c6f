// Package orchestrator turns saved uploads into conversion jobs.
//
// Submit computes the encoding policy from the client's capability hint,
// classifies the media, records a Pending job and starts a goroutine for
// it. The goroutine moves the job to Processing, runs the encoder cascade
// and records Completed or Failed. Whatever happens, including a panic, the
// job ends in a terminal state.
//
// With Config.Workers > 0 a weighted semaphore bounds how many conversions
// run at once; waiting jobs stay Pending. Shutdown cancels everything in
// flight and the affected jobs end Failed.
package orchestrator
