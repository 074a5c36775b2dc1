// Package pipeline runs the enabled transformation steps of one claimed job.
//
// Steps execute in a fixed order: remove-audio, compress, convert (one
// invocation per requested format) and poster. Remove-audio and compress
// rewrite the working file, so compression of an audio-stripped job reads the
// stripped output; convert and poster read the current working file without
// advancing it.
//
// Each Execute call builds a fresh run value holding the working file,
// progress and results, so the Executor itself carries only collaborators and
// configuration. Every transcoder invocation gets its own deadline. When a step
// fails the run deletes every artifact it produced and returns the error; the
// staged input stays in scratch for diagnosis. On success the scratch
// directory is removed and the completed transition is written with the
// results and progress 100.
package pipeline
