// Package daemon coordinates the long-running vidpipe process.
//
// It wires configuration, the job store, the dispatcher, the expiry sweeper
// schedule and the HTTP status server into a single lifecycle with
// flock-based locking to prevent multiple instances sharing one state
// directory. Startup runs the preflight checks and refuses to claim jobs on a
// host that cannot finish them.
//
// Keep orchestration logic here: pipeline steps and persistence rules live in
// their own packages while the daemon focuses on startup, shutdown and high
// level coordination.
package daemon
