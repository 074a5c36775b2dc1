package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidpipe/internal/config"
	"vidpipe/internal/intake"
	"vidpipe/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		opts       queue.Options
		resolution string
		name       string
		move       bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Stage a video and queue a conversion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			opts.Resolution = queue.Resolution(resolution)
			opts.Convert = len(opts.Formats) > 0
			if cmd.Flags().Changed("poster-format") || cmd.Flags().Changed("poster-time") {
				opts.GeneratePoster = true
			}
			if cmd.Flags().Changed("width") && resolution == "" {
				opts.Resolution = queue.ResolutionCustom
			}
			if opts.Resolution != "" {
				opts.Compress = true
			}

			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := intake.New(cfg, store, logger).Submit(cmd.Context(), intake.Submission{
					SourcePath:   source,
					OriginalName: name,
					Options:      opts,
					Move:         move,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]string{"id": job.ID, "status": string(job.Status)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s (%s)\n", job.ID, stepSummary(job.Options))
				fmt.Fprintf(out, "Track it with: vidpipe show %s\n", job.ID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.RemoveAudio, "remove-audio", false, "Strip every audio stream")
	flags.StringVar(&resolution, "resolution", "", "Compress to 1080p, 720p, 480p or custom")
	flags.IntVar(&opts.Width, "width", 0, "Target width for custom compression")
	flags.StringSliceVar(&opts.Formats, "convert", nil, "Convert to these formats (e.g. webm,mov,hls)")
	flags.BoolVar(&opts.GeneratePoster, "poster", false, "Capture a poster frame")
	flags.StringVar(&opts.PosterFormat, "poster-format", "", "Poster image format (default png)")
	flags.Float64Var(&opts.PosterTime, "poster-time", 0, "Poster capture offset in seconds (default 1)")
	flags.StringVar(&name, "name", "", "Original file name reported to clients")
	flags.BoolVar(&move, "move", false, "Move the file into scratch instead of copying it")
	flags.BoolVar(&jsonOut, "json", false, "Print the created job as JSON")
	return cmd
}
