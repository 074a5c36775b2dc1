// Package ffprobe runs ffprobe against a media file and decodes the JSON
// report into typed results.
//
// Helpers on Result answer the questions the transcoder asks of a source:
// stream counts, duration, and the display aspect ratio of the first video
// stream. Numeric fields arrive as strings from ffprobe; helpers return NaN or
// zero rather than failing when a value is absent or malformed.
package ffprobe
