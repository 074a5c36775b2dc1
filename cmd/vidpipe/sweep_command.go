package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidpipe/internal/config"
	"vidpipe/internal/queue"
	"vidpipe/internal/sweeper"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired jobs, their files and stale scratch directories now",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.cliLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				result, err := sweeper.New(cfg, store, logger).Sweep(cmd.Context())
				if errors.Is(err, sweeper.ErrLocked) {
					return fmt.Errorf("another sweep is running; try again later")
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Expired jobs removed:     %s\n", humanize.Comma(int64(result.ExpiredJobs)))
				fmt.Fprintf(out, "Failed jobs removed:      %s\n", humanize.Comma(int64(result.FailedJobs)))
				fmt.Fprintf(out, "Files removed:            %s\n", humanize.Comma(int64(result.FilesRemoved)))
				fmt.Fprintf(out, "Files already missing:    %s\n", humanize.Comma(int64(result.FilesMissing)))
				fmt.Fprintf(out, "Scratch directories:      %s\n", humanize.Comma(int64(len(result.ScratchRemoved))))
				if result.FileErrors > 0 {
					fmt.Fprintf(out, "Files that could not be removed: %d (see log)\n", result.FileErrors)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the sweep result as JSON")
	return cmd
}
