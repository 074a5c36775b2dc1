// Package logging builds the slog loggers used by the daemon and the CLI.
//
// New picks between a human console handler and a JSON handler and routes
// output to stdout, stderr or files. WithContext copies the job ID, step and
// request ID carried on a context onto a logger, so executor and sweeper code
// never threads those fields by hand. NewNop is for tests.
package logging
