package transcoder_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"vidpipe/internal/media/ffprobe"
	"vidpipe/internal/services"
	"vidpipe/internal/testsupport"
	"vidpipe/internal/transcoder"
)

type recordedCommand struct {
	name string
	args []string
}

// writingRunner records invocations and writes size bytes to the last argument.
func writingRunner(calls *[]recordedCommand, size int64) transcoder.CommandRunner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedCommand{name: name, args: append([]string(nil), args...)})
		if size > 0 {
			return os.WriteFile(args[len(args)-1], make([]byte, size), 0o644)
		}
		return nil
	}
}

func argValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func stagedInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.mp4")
	testsupport.WriteFile(t, path, 1024)
	return path
}

func TestRunCompressScalesToEvenDimensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(writingRunner(&calls, 512)))

	input := stagedInput(t, cfg.Paths.ScratchDir)
	out, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindCompress,
		Input:  input,
		Output: filepath.Join(cfg.Paths.MediaDir, "job.mp4"),
		Width:  641,
		Height: 361,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Size != 512 {
		t.Fatalf("expected size 512, got %d", out.Size)
	}
	if len(calls) != 1 || calls[0].name != "ffmpeg" {
		t.Fatalf("unexpected invocations: %+v", calls)
	}
	if got := argValue(calls[0].args, "-vf"); got != "scale=640:360" {
		t.Fatalf("expected scale=640:360, got %q", got)
	}
	if got := argValue(calls[0].args, "-i"); got != input {
		t.Fatalf("expected input %q, got %q", input, got)
	}
}

func TestRunRemoveAudioDropsAudioStreams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(writingRunner(&calls, 64)))

	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindRemoveAudio,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: filepath.Join(cfg.Paths.MediaDir, "job-noaudio.mp4"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	joined := strings.Join(calls[0].args, " ")
	if !strings.Contains(joined, "-map -0:a") || !strings.Contains(joined, "-c copy") {
		t.Fatalf("expected audio map removal with stream copy, got %q", joined)
	}
}

func TestRunRemoveAudioRejectsOutputWithAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil,
		transcoder.WithCommandRunner(writingRunner(&calls, 64)),
		transcoder.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}}}, nil
		}),
	)

	output := filepath.Join(cfg.Paths.MediaDir, "job-noaudio.mp4")
	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindRemoveAudio,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: output,
	})
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected transcode failure, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected rejected output to be removed, stat err %v", statErr)
	}
}

func TestRunConvertSelectsCodecs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(writingRunner(&calls, 64)))
	input := stagedInput(t, cfg.Paths.ScratchDir)

	cases := map[string]string{
		"webm": "libvpx-vp9",
		"mov":  "libx264",
		"avi":  "mpeg4",
	}
	for format, codec := range cases {
		calls = nil
		_, err := engine.Run(context.Background(), transcoder.Operation{
			Kind:   transcoder.KindConvert,
			Input:  input,
			Output: filepath.Join(cfg.Paths.MediaDir, "job-1."+format),
			Format: format,
		})
		if err != nil {
			t.Fatalf("Run %s: %v", format, err)
		}
		if got := argValue(calls[0].args, "-c:v"); got != codec {
			t.Fatalf("%s: expected codec %s, got %q", format, codec, got)
		}
	}
}

func TestRunRejectsUndersizedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MinOutputBytes = 128
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(writingRunner(&calls, 10)))

	output := filepath.Join(cfg.Paths.MediaDir, "job.mp4")
	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindCompress,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: output,
		Width:  640,
		Height: 360,
	})
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected ErrTranscode, got %v", err)
	}
	if testsupport.FileExists(output) {
		t.Fatal("expected undersized output to be removed")
	}
}

func TestRunMissingOutputIsTranscodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(writingRunner(&calls, 0)))

	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindConvert,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: filepath.Join(cfg.Paths.MediaDir, "job-1.webm"),
		Format: "webm",
	})
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected ErrTranscode, got %v", err)
	}
}

func TestRunEngineErrorIsTranscodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1: Invalid data found")
	}))

	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindConvert,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: filepath.Join(cfg.Paths.MediaDir, "job-1.webm"),
		Format: "webm",
	})
	if !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected ErrTranscode, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected engine output in error, got %v", err)
	}
}

func TestRunDeadlineIsTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_, err := engine.Run(ctx, transcoder.Operation{
		Kind:   transcoder.KindCompress,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: filepath.Join(cfg.Paths.MediaDir, "job.mp4"),
		Width:  640,
		Height: 360,
	})
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected timeout transcode failure, got %v", err)
	}
}

func TestRunHLSCountsSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MinOutputBytes = 256
	var args []string
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithCommandRunner(func(_ context.Context, _ string, a ...string) error {
		args = a
		playlist := a[len(a)-1]
		pattern := argValue(a, "-hls_segment_filename")
		var body strings.Builder
		body.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-PLAYLIST-TYPE:VOD\n")
		for i := 0; i < 2; i++ {
			segment := fmt.Sprintf(pattern, i)
			if err := os.WriteFile(segment, make([]byte, 200), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(&body, "#EXTINF:6.000000,\n%s\n", filepath.Base(segment))
		}
		body.WriteString("#EXT-X-ENDLIST\n")
		return os.WriteFile(playlist, []byte(body.String()), 0o644)
	}))

	output := filepath.Join(cfg.Paths.MediaDir, "job-1.m3u8")
	out, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindConvert,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: output,
		Format: "hls",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if argValue(args, "-f") != "hls" || argValue(args, "-hls_time") != "6" {
		t.Fatalf("unexpected hls args: %v", args)
	}
	if len(out.Extra) != 2 {
		t.Fatalf("expected 2 segments, got %v", out.Extra)
	}
	info, _ := os.Stat(output)
	if out.Size != info.Size()+400 {
		t.Fatalf("expected playlist plus segment size, got %d", out.Size)
	}
	for _, segment := range out.Extra {
		if filepath.Dir(segment) != cfg.Paths.MediaDir || !strings.HasPrefix(filepath.Base(segment), "job-1-") {
			t.Fatalf("unexpected segment path %s", segment)
		}
	}
}

func TestRunPosterClampsOffset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var calls []recordedCommand
	engine := transcoder.NewFFmpeg(cfg, nil,
		transcoder.WithCommandRunner(writingRunner(&calls, 64)),
		transcoder.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
			return ffprobe.Result{Format: ffprobe.Format{Duration: "4.0"}}, nil
		}),
	)

	_, err := engine.Run(context.Background(), transcoder.Operation{
		Kind:   transcoder.KindPoster,
		Input:  stagedInput(t, cfg.Paths.ScratchDir),
		Output: filepath.Join(cfg.Paths.MediaDir, "job-poster.png"),
		Format: "png",
		Offset: 30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := argValue(calls[0].args, "-ss"); got != "2.000" {
		t.Fatalf("expected clamped offset 2.000, got %q", got)
	}
	if got := argValue(calls[0].args, "-frames:v"); got != "1" {
		t.Fatalf("expected single frame, got %q", got)
	}
}

func TestAspectRatioUsesProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := transcoder.NewFFmpeg(cfg, nil, transcoder.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: 640, Height: 480}}}, nil
	}))
	ratio, err := engine.AspectRatio(context.Background(), "ignored.mp4")
	if err != nil || math.Abs(ratio-4.0/3.0) > 1e-9 {
		t.Fatalf("expected 4:3, got %v err=%v", ratio, err)
	}

	failing := transcoder.NewFFmpeg(cfg, nil, transcoder.WithProber(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("probe failed")
	}))
	if _, err := failing.AspectRatio(context.Background(), "ignored.mp4"); !errors.Is(err, services.ErrTranscode) {
		t.Fatalf("expected ErrTranscode, got %v", err)
	}
}

func TestOutputExtension(t *testing.T) {
	if transcoder.OutputExtension("HLS") != "m3u8" || transcoder.OutputExtension("webm") != "webm" {
		t.Fatal("unexpected output extensions")
	}
	if !transcoder.IsHLS("m3u8") || transcoder.IsHLS("mp4") {
		t.Fatal("unexpected IsHLS results")
	}
}
