// Package services defines shared utilities consumed by the pipeline, the
// dispatcher and the sweeper.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, step names, worker IDs and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (input, transcode, storage, persistence) without string matching.
//
// Use these helpers when wiring new step logic so failure handling stays
// uniform across the pipeline.
package services
