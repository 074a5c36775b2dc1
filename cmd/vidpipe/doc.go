// Command vidpipe runs the video conversion worker and the local tools that
// submit, inspect and maintain jobs.
//
// The daemon subcommand claims and processes jobs, sweeps expired ones and
// serves the HTTP status API. Every other subcommand opens the job store
// directly, so it works whether or not a daemon is running.
package main
