// Package jobs holds the lifecycle state of conversion jobs.
//
// A job moves Pending -> Processing -> {Completed, Failed}. Completed and
// Failed are terminal: the store rejects any later transition with
// ErrInvalidTransition and leaves the job untouched. Mutations on unknown
// ids return ErrNotFound and change nothing.
//
// The Store is constructed explicitly and handed to its users; it is not a
// process-wide singleton. Jobs are kept for the life of the process unless
// the owner calls Sweep.
package jobs
