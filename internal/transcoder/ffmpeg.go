package transcoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vidpipe/internal/config"
	"vidpipe/internal/logging"
	"vidpipe/internal/media/ffprobe"
	"vidpipe/internal/services"
)

// CommandRunner executes an external binary, returning an error that carries
// its combined output on failure.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Prober inspects a media file.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// FFmpeg runs operations through the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegBinary  string
	ffprobeBinary string
	minOutput     int64
	hlsSegment    int
	posterWidth   int
	posterHeight  int
	logger        *slog.Logger
	run           CommandRunner
	probe         Prober
}

// Option customizes an FFmpeg engine.
type Option func(*FFmpeg)

// WithCommandRunner swaps the process runner, mainly for tests.
func WithCommandRunner(r CommandRunner) Option {
	return func(f *FFmpeg) {
		if r != nil {
			f.run = r
		}
	}
}

// WithProber swaps the ffprobe invocation.
func WithProber(p Prober) Option {
	return func(f *FFmpeg) {
		if p != nil {
			f.probe = p
		}
	}
}

// NewFFmpeg builds an engine from configuration.
func NewFFmpeg(cfg *config.Config, logger *slog.Logger, opts ...Option) *FFmpeg {
	f := &FFmpeg{
		ffmpegBinary:  cfg.Transcoder.FFmpegBinary,
		ffprobeBinary: cfg.Transcoder.FFprobeBinary,
		minOutput:     cfg.Pipeline.MinOutputBytes,
		hlsSegment:    cfg.Transcoder.HLSSegmentSeconds,
		posterWidth:   cfg.Transcoder.PosterWidth,
		posterHeight:  cfg.Transcoder.PosterHeight,
		logger:        logging.NewComponentLogger(logger, "ffmpeg"),
		run:           defaultCommandRunner,
		probe:         ffprobe.Inspect,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Run executes op and verifies what it produced.
func (f *FFmpeg) Run(ctx context.Context, op Operation) (Output, error) {
	step := string(op.Kind)
	if _, err := os.Stat(op.Input); err != nil {
		return Output{}, services.Wrap(services.ErrTranscode, step, "open input", "Input file is not readable", err)
	}
	if err := os.MkdirAll(filepath.Dir(op.Output), 0o755); err != nil {
		return Output{}, services.Wrap(services.ErrStorage, step, "prepare output", "Failed to create output directory", err)
	}

	if op.Kind == KindPoster {
		op.Offset = f.clampOffset(ctx, op.Input, op.Offset)
	}
	args, err := f.buildArgs(op)
	if err != nil {
		return Output{}, services.Wrap(services.ErrTranscode, step, "build arguments", err.Error(), nil)
	}

	f.logger.Debug("executing ffmpeg",
		logging.String(logging.FieldStep, step),
		logging.String("input", op.Input),
		logging.String("output", op.Output),
		logging.String("format", op.Format),
	)
	if err := f.run(ctx, f.ffmpegBinary, args...); err != nil {
		f.removePartial(op)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Output{}, services.Wrap(services.ErrTranscode, step, "run ffmpeg", "Step deadline exceeded", services.ErrTimeout)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, ctxErr
		}
		return Output{}, services.Wrap(services.ErrTranscode, step, "run ffmpeg", "ffmpeg exited with an error", err)
	}

	out, err := f.verify(op)
	if err == nil && op.Kind == KindRemoveAudio {
		err = f.verifyStreams(ctx, op.Output)
	}
	if err != nil {
		f.removePartial(op)
		return Output{}, err
	}
	return out, nil
}

// verifyStreams checks a stripped output kept its video and lost its audio.
// An unavailable probe skips the check.
func (f *FFmpeg) verifyStreams(ctx context.Context, path string) error {
	result, err := f.probe(ctx, f.ffprobeBinary, path)
	if err != nil {
		f.logger.Debug("skipping stream verification", logging.Error(err))
		return nil
	}
	step := string(KindRemoveAudio)
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrTranscode, step, "verify streams", "Output has no video stream", nil)
	}
	if n := result.AudioStreamCount(); n > 0 {
		return services.Wrap(services.ErrTranscode, step, "verify streams",
			fmt.Sprintf("Output still carries %d audio stream(s)", n), nil)
	}
	return nil
}

// AspectRatio probes path for the display aspect ratio of its first video stream.
func (f *FFmpeg) AspectRatio(ctx context.Context, path string) (float64, error) {
	result, err := f.probe(ctx, f.ffprobeBinary, path)
	if err != nil {
		return 0, services.Wrap(services.ErrTranscode, "probe", "inspect source", "ffprobe failed", err)
	}
	ratio, err := result.AspectRatio()
	if err != nil {
		return 0, services.Wrap(services.ErrTranscode, "probe", "aspect ratio", "Source has no measurable video stream", err)
	}
	return ratio, nil
}

func (f *FFmpeg) buildArgs(op Operation) ([]string, error) {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	switch op.Kind {
	case KindRemoveAudio:
		args = append(args, "-i", op.Input, "-map", "0", "-map", "-0:a", "-c", "copy", op.Output)
	case KindCompress:
		if op.Width <= 0 || op.Height <= 0 {
			return nil, fmt.Errorf("compress requires positive dimensions, got %dx%d", op.Width, op.Height)
		}
		args = append(args, "-i", op.Input,
			"-vf", fmt.Sprintf("scale=%d:%d", even(op.Width), even(op.Height)),
			"-c:v", "libx264", "-preset", "medium", "-crf", "23",
			"-c:a", "aac", "-b:a", "128k",
			op.Output)
	case KindConvert:
		format := strings.ToLower(strings.TrimSpace(op.Format))
		if format == "" {
			return nil, errors.New("convert requires a target format")
		}
		args = append(args, "-i", op.Input)
		if IsHLS(format) {
			base := strings.TrimSuffix(op.Output, filepath.Ext(op.Output))
			args = append(args,
				"-c:v", "libx264", "-c:a", "aac",
				"-f", "hls",
				"-hls_time", strconv.Itoa(f.hlsSegment),
				"-hls_playlist_type", "vod",
				"-hls_segment_filename", base+"-%03d.ts",
				op.Output)
			return args, nil
		}
		args = append(args, codecArgs(format)...)
		args = append(args, op.Output)
	case KindPoster:
		args = append(args,
			"-ss", strconv.FormatFloat(op.Offset, 'f', 3, 64),
			"-i", op.Input,
			"-frames:v", "1",
			"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", f.posterWidth, f.posterHeight),
			op.Output)
	default:
		return nil, fmt.Errorf("unknown operation %q", op.Kind)
	}
	return args, nil
}

func codecArgs(format string) []string {
	switch format {
	case "mp4", "m4v", "mov", "mkv":
		return []string{"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-c:a", "aac", "-b:a", "128k"}
	case "webm":
		return []string{"-c:v", "libvpx-vp9", "-b:v", "0", "-crf", "32", "-c:a", "libopus"}
	case "avi":
		return []string{"-c:v", "mpeg4", "-q:v", "5", "-c:a", "libmp3lame"}
	case "gif":
		return []string{"-vf", "fps=10,scale=480:-1:flags=lanczos", "-an"}
	default:
		return nil
	}
}

// clampOffset keeps a poster capture inside the source: past-the-end offsets
// fall back to the midpoint.
func (f *FFmpeg) clampOffset(ctx context.Context, input string, offset float64) float64 {
	if offset < 0 {
		offset = 0
	}
	result, err := f.probe(ctx, f.ffprobeBinary, input)
	if err != nil {
		return offset
	}
	duration := result.DurationSeconds()
	if duration > 0 && offset >= duration {
		f.logger.Debug("poster offset beyond duration",
			logging.Float64("offset", offset),
			logging.Float64("duration", duration),
		)
		return duration / 2
	}
	return offset
}

func (f *FFmpeg) verify(op Operation) (Output, error) {
	step := string(op.Kind)
	info, err := os.Stat(op.Output)
	if err != nil {
		return Output{}, services.Wrap(services.ErrTranscode, step, "verify output", "ffmpeg produced no output", err)
	}
	out := Output{Path: op.Output, Size: info.Size()}
	if op.Kind == KindConvert && IsHLS(op.Format) {
		segments, total, err := playlistSegments(op.Output)
		if err != nil {
			return Output{}, services.Wrap(services.ErrTranscode, step, "verify playlist", "HLS playlist is unreadable", err)
		}
		if len(segments) == 0 {
			return Output{}, services.Wrap(services.ErrTranscode, step, "verify playlist", "HLS playlist lists no segments", nil)
		}
		out.Extra = segments
		out.Size += total
	}
	if out.Size < f.minOutput {
		return Output{}, services.Wrap(services.ErrTranscode, step, "verify output",
			fmt.Sprintf("Output is %d bytes, below minimum %d", out.Size, f.minOutput), nil)
	}
	return out, nil
}

func (f *FFmpeg) removePartial(op Operation) {
	_ = os.Remove(op.Output)
	if op.Kind != KindConvert || !IsHLS(op.Format) {
		return
	}
	base := strings.TrimSuffix(op.Output, filepath.Ext(op.Output))
	matches, _ := filepath.Glob(base + "-*.ts")
	for _, path := range matches {
		_ = os.Remove(path)
	}
}

// IsHLS reports whether format selects segmented HLS output.
func IsHLS(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "hls", "m3u8":
		return true
	}
	return false
}

// OutputExtension maps a convert format to the file extension of its primary output.
func OutputExtension(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if IsHLS(format) {
		return "m3u8"
	}
	return format
}

func even(n int) int {
	if n < 2 {
		return 2
	}
	return n &^ 1
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
