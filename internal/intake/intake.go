// Package intake accepts source videos: it validates the file and options,
// stages the file into the scratch root under a fresh job id, and creates the
// pending job. Rejections carry services.ErrInput and leave nothing behind.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vidpipe/internal/config"
	"vidpipe/internal/fileutil"
	"vidpipe/internal/logging"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
)

// Submission describes one upload.
type Submission struct {
	SourcePath string
	// OriginalName is the client-facing file name; the source base name when empty.
	OriginalName string
	Options      queue.Options
	// Move stages by renaming the source instead of copying it.
	Move bool
}

// Intake stages uploads and creates jobs.
type Intake struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	newID  func() string
}

// Option customizes an Intake.
type Option func(*Intake)

// WithIDGenerator replaces the uuid job id source.
func WithIDGenerator(fn func() string) Option {
	return func(i *Intake) {
		if fn != nil {
			i.newID = fn
		}
	}
}

func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Intake {
	i := &Intake{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "intake"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Submit validates sub, stages its file and creates a pending job.
func (i *Intake) Submit(ctx context.Context, sub Submission) (*queue.Job, error) {
	opts := sub.Options.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(sub.SourcePath)
	if err != nil {
		return nil, inputError("source file is not readable", err)
	}
	if !info.Mode().IsRegular() {
		return nil, inputError("source is not a regular file", nil)
	}
	if info.Size() == 0 {
		return nil, inputError("source file is empty", nil)
	}

	name := strings.TrimSpace(sub.OriginalName)
	if name == "" {
		name = filepath.Base(sub.SourcePath)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" || !i.cfg.AllowsExtension(ext) {
		return nil, inputError(fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	detected, err := detectExtension(sub.SourcePath, i.cfg.AllowsExtension)
	if err != nil {
		return nil, err
	}
	if detected != ext {
		i.logger.Debug("extension differs from content",
			logging.String("original_file", name),
			logging.String("detected", detected),
		)
		ext = detected
	}

	id := i.newID()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, i.logger)
	staged := queue.StagedInputPath(i.cfg.Paths.ScratchDir, id, ext)
	scratch := queue.ScratchDir(i.cfg.Paths.ScratchDir, id)

	stage := fileutil.CopyVerified
	if sub.Move {
		stage = fileutil.Move
	}
	if _, err := stage(ctx, sub.SourcePath, staged); err != nil {
		_ = os.RemoveAll(scratch)
		return nil, services.Wrap(services.ErrStorage, "intake", "stage source", "Failed to stage the uploaded file", err)
	}

	opts.VideoExtension = ext
	job, err := i.store.CreateJob(ctx, id, name, info.Size(), opts)
	if err != nil {
		if sub.Move {
			if _, restoreErr := fileutil.Move(ctx, staged, sub.SourcePath); restoreErr != nil {
				logger.Warn("failed to restore moved source", logging.Error(restoreErr), logging.String("path", sub.SourcePath))
			}
		}
		_ = os.RemoveAll(scratch)
		return nil, err
	}

	logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("original_file", name),
		logging.Int64("original_size", info.Size()),
		logging.String("steps", stepNames(opts.EnabledSteps())),
	)
	return job, nil
}

func inputError(msg string, err error) error {
	return services.Wrap(services.ErrInput, "intake", "validate source", msg, err)
}

func stepNames(steps []queue.StepKind) string {
	names := make([]string, len(steps))
	for idx, s := range steps {
		names[idx] = string(s)
	}
	return strings.Join(names, ",")
}
