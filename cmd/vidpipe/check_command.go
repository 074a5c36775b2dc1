package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidpipe/internal/config"
	"vidpipe/internal/preflight"
	"vidpipe/internal/queue"
	"vidpipe/internal/staging"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, job store, ffmpeg binaries and daemon reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var results []preflight.Result
			storeErr := ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				results = preflight.RunAll(cmd.Context(), cfg, store)
				stats, err := store.Health(cmd.Context())
				if err == nil {
					results = append(results, preflight.Result{
						Name:   "Jobs",
						Passed: true,
						Detail: fmt.Sprintf("%d total, %d pending, %d processing, %d failed", stats.Total, stats.Pending, stats.Processing, stats.Failed),
					})
				}
				return nil
			})
			if storeErr != nil {
				results = preflight.RunAll(cmd.Context(), cfg, nil)
			}

			renderCheck(cmd.Context(), out, cfg, ctx.configPath, results, colorize)
			return preflight.FirstFailure(results)
		},
	}
}

func renderCheck(ctx context.Context, out io.Writer, cfg *config.Config, configPath string, results []preflight.Result, colorize bool) {
	for _, line := range renderSectionHeader("Configuration", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, configPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Store driver", statusInfo, cfg.Store.Driver, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Readiness", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	usageKind, usage := scratchUsage(cfg.Paths.ScratchDir)
	fmt.Fprintln(out, renderStatusLine("Scratch usage", usageKind, usage, colorize))

	daemon := preflight.CheckDaemonFromConfig(ctx, cfg)
	kind := statusOK
	if !daemon.Passed {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine(daemon.Name, kind, daemon.Detail, colorize))
}

// scratchUsage summarizes the job directories left in the scratch root.
func scratchUsage(scratchDir string) (statusKind, string) {
	dirs, err := staging.ListDirectories(scratchDir)
	if err != nil {
		return statusWarn, fmt.Sprintf("unreadable (%v)", err)
	}
	var total int64
	for _, dir := range dirs {
		total += dir.Size
	}
	return statusInfo, fmt.Sprintf("%d job directories, %s", len(dirs), humanize.IBytes(uint64(total)))
}
