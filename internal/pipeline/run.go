package pipeline

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidpipe/internal/logging"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
	"vidpipe/internal/transcoder"
)

// defaultAspectRatio is used when a custom resolution cannot be probed.
const defaultAspectRatio = 16.0 / 9.0

var presetDimensions = map[queue.Resolution][2]int{
	queue.Resolution1080p: {1920, 1080},
	queue.Resolution720p:  {1280, 720},
	queue.Resolution480p:  {854, 480},
}

// run is the state of one job execution. It is never shared between jobs.
type run struct {
	exec   *Executor
	req    Request
	opts   queue.Options
	logger *slog.Logger

	working  string
	progress int
	results  []queue.StepResult
	// produced holds every file this run wrote to the media root.
	produced []string
}

func (r *run) execute(ctx context.Context) error {
	if _, err := os.Stat(r.working); err != nil {
		return services.Wrap(services.ErrStorage, "pipeline", "open staged input", "Staged input is missing", err)
	}
	r.logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("input", r.working),
		logging.String("steps", stepList(r.opts.EnabledSteps())),
	)

	if r.opts.RemoveAudio {
		if err := r.removeAudio(ctx); err != nil {
			return err
		}
		r.advance(ctx)
	}
	if r.opts.Compress {
		if err := r.compress(ctx); err != nil {
			return err
		}
		r.advance(ctx)
	}
	if r.opts.Convert {
		for _, format := range r.opts.Formats {
			if err := r.convert(ctx, format); err != nil {
				return err
			}
		}
		r.advance(ctx)
	}
	if r.opts.GeneratePoster {
		if err := r.poster(ctx); err != nil {
			return err
		}
		r.advance(ctx)
	}
	return nil
}

func (r *run) removeAudio(ctx context.Context) error {
	out, err := r.invoke(ctx, transcoder.Operation{
		Kind:   transcoder.KindRemoveAudio,
		Input:  r.working,
		Output: r.exec.mediaPath(queue.AudioRemovedName(r.req.JobID, r.videoExtension())),
	})
	if err != nil {
		return err
	}
	r.record(queue.StepResult{Kind: queue.KindAudioRemoved}, out)
	r.working = out.Path
	return nil
}

func (r *run) compress(ctx context.Context) error {
	width, height := r.dimensions(ctx)
	out, err := r.invoke(ctx, transcoder.Operation{
		Kind:   transcoder.KindCompress,
		Input:  r.working,
		Output: r.exec.mediaPath(queue.CompressedName(r.req.JobID, r.videoExtension())),
		Width:  width,
		Height: height,
	})
	if err != nil {
		return err
	}
	r.record(queue.StepResult{Kind: queue.KindCompressed}, out)
	r.working = out.Path
	return nil
}

func (r *run) convert(ctx context.Context, format string) error {
	token := strconv.FormatUint(r.exec.disambiguator(), 10)
	out, err := r.invoke(ctx, transcoder.Operation{
		Kind:   transcoder.KindConvert,
		Input:  r.working,
		Output: r.exec.mediaPath(queue.ConvertedName(r.req.JobID, token, transcoder.OutputExtension(format))),
		Format: format,
	})
	if err != nil {
		return err
	}
	r.record(queue.StepResult{Kind: queue.KindConverted, Format: format}, out)
	return nil
}

func (r *run) poster(ctx context.Context) error {
	out, err := r.invoke(ctx, transcoder.Operation{
		Kind:   transcoder.KindPoster,
		Input:  r.working,
		Output: r.exec.mediaPath(queue.PosterName(r.req.JobID, r.opts.PosterFormat)),
		Format: r.opts.PosterFormat,
		Offset: r.opts.PosterTime,
	})
	if err != nil {
		return err
	}
	r.record(queue.StepResult{Kind: queue.KindPoster}, out)
	return nil
}

// invoke runs one transcoder operation under the step deadline.
func (r *run) invoke(ctx context.Context, op transcoder.Operation) (transcoder.Output, error) {
	step := string(op.Kind)
	stepCtx := services.WithStep(ctx, step)
	if r.exec.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, r.exec.stepTimeout)
		defer cancel()
	}
	logger := logging.WithContext(stepCtx, r.exec.logger)
	logger.Debug("step started", logging.String("input", op.Input), logging.String("output", op.Output))

	started := time.Now()
	out, err := r.exec.engine.Run(stepCtx, op)
	r.exec.metrics.ObserveStep(step, time.Since(started), err)
	if out.Path == "" {
		out.Path = op.Output
	}
	if err != nil {
		// Engines may leave partial output behind.
		r.produced = append(r.produced, out.Path)
		r.produced = append(r.produced, out.Extra...)
		err = stepError(step, stepCtx, ctx, err)
		logger.Error("step failed",
			logging.String(logging.FieldEventType, "step_failed"),
			logging.String("category", services.Category(err)),
			logging.Error(err),
		)
		return transcoder.Output{}, err
	}
	r.produced = append(r.produced, out.Path)
	r.produced = append(r.produced, out.Extra...)
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_completed"),
		logging.String("output", filepath.Base(out.Path)),
		logging.Int64("size_bytes", out.Size),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

func (r *run) record(result queue.StepResult, out transcoder.Output) {
	result.FileName = filepath.Base(out.Path)
	result.Size = out.Size
	r.results = append(r.results, result)
}

// advance raises progress by one step type. Store failures are logged and
// otherwise ignored.
func (r *run) advance(ctx context.Context) {
	r.progress = min(r.progress+ProgressStep, 100)
	if err := r.exec.store.UpdateProgress(ctx, r.req.JobID, r.progress); err != nil {
		r.logger.Debug("progress update failed", logging.Int("progress", r.progress), logging.Error(err))
	}
}

// dimensions resolves the compression target. Custom widths keep the source
// aspect ratio, falling back to 16:9 when probing fails.
func (r *run) dimensions(ctx context.Context) (int, int) {
	if dims, ok := presetDimensions[r.opts.Resolution]; ok {
		return dims[0], dims[1]
	}
	width := r.opts.Width
	probeCtx := ctx
	if r.exec.stepTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, r.exec.stepTimeout)
		defer cancel()
	}
	aspect, err := r.exec.engine.AspectRatio(probeCtx, r.working)
	if err != nil || aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		logging.WarnWithContext(r.logger, "aspect ratio probe failed; assuming 16:9", "aspect_probe_failed",
			logging.Error(err),
			logging.Float64("aspect", aspect),
			logging.String(logging.FieldImpact, "custom resolution may not match the source shape"),
		)
		aspect = defaultAspectRatio
	}
	height := int(math.Round(float64(width) / aspect))
	if height < 1 {
		height = 1
	}
	return width, height
}

func (r *run) videoExtension() string {
	if ext := strings.TrimSpace(r.opts.VideoExtension); ext != "" {
		return ext
	}
	return strings.TrimPrefix(filepath.Ext(r.req.InputPath), ".")
}

// discard removes everything this run wrote to the media root.
func (r *run) discard() {
	removed := 0
	for _, path := range r.produced {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				r.logger.Warn("failed to remove artifact of failed run", logging.String("path", path), logging.Error(err))
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("discarded partial artifacts",
			logging.String(logging.FieldEventType, "artifacts_discarded"),
			logging.Int("files", removed),
		)
	}
	r.produced = nil
	r.results = nil
}

func stepList(steps []queue.StepKind) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
