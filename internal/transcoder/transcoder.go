// Package transcoder defines the media engine the pipeline drives and an
// ffmpeg/ffprobe implementation of it.
//
// The pipeline treats the engine as opaque: it passes input and output paths
// plus step parameters and gets back the produced file and its size. The
// FFmpeg implementation verifies every output (present, at least the
// configured minimum size) before reporting success, so a zero-byte or
// missing file surfaces as a transcode failure rather than a bogus artifact.
package transcoder

import (
	"context"
)

// Kind names the engine operation.
type Kind string

const (
	KindRemoveAudio Kind = "remove-audio"
	KindCompress    Kind = "compress"
	KindConvert     Kind = "convert"
	KindPoster      Kind = "poster"
)

// Operation is one engine invocation.
type Operation struct {
	Kind   Kind
	Input  string
	Output string
	// Width and Height are the compression target.
	Width  int
	Height int
	// Format is the container for convert and the image format for poster.
	Format string
	// Offset is the poster capture position in seconds.
	Offset float64
}

// Output describes what an operation produced. Extra lists companion files
// (HLS segments) that belong to Path and are removed with it.
type Output struct {
	Path  string
	Size  int64
	Extra []string
}

// Transcoder runs media operations.
type Transcoder interface {
	Run(ctx context.Context, op Operation) (Output, error)
	// AspectRatio returns width/height of the first video stream.
	AspectRatio(ctx context.Context, path string) (float64, error)
}
