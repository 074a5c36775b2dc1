// Package workflow is the dispatcher: a single sequential loop per process
// that claims the oldest pending job and drives it to a terminal state.
//
// The Manager polls the job store, wins a job with an atomic conditional
// claim, and hands it to the pipeline executor while a heartbeat loop keeps
// the claim fresh. Lost claims re-poll immediately; an empty queue sleeps for
// the poll interval and loop errors sleep for the error retry interval. A
// reclaimer pass at the top of every iteration fails processing jobs whose
// heartbeat has gone stale, so a crashed worker or an unwritable terminal
// state never leaves a job processing forever.
//
// Failed transitions are written here, retried with backoff, and surfaced as
// persistence errors in Status and the log when they cannot be stored.
package workflow
