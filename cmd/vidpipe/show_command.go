package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidpipe/internal/api"
	"vidpipe/internal/config"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show the client report for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				report, err := api.NewJobService(store, cfg.API.PublicBaseURL).Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if report == nil {
					return services.Wrap(services.ErrNotFound, "", "show", fmt.Sprintf("job %s not found", id), nil)
				}
				if jsonOut {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				renderReport(out, *report, shouldColorize(out))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func renderReport(out io.Writer, report api.Report, colorize bool) {
	fmt.Fprintf(out, "Job %s\n", report.ID)
	if report.OriginalFileName != "" {
		fmt.Fprintf(out, "  Source:    %s (%s)\n", report.OriginalFileName, humanize.IBytes(uint64(report.InitialSize)))
	}
	fmt.Fprintf(out, "  Status:    %s\n", colorStatus(report.Status, colorize))
	if report.Status == string(queue.StatusProcessing) {
		fmt.Fprintf(out, "  Progress:  %d%%\n", report.Progress)
	}
	if created := api.ParseTime(report.CreatedAt); !created.IsZero() {
		fmt.Fprintf(out, "  Created:   %s (%s)\n", report.CreatedAt, humanize.Time(created))
	}
	if report.Error != "" {
		fmt.Fprintf(out, "  Error:     %s\n", report.Error)
	}
	if report.FinalSize != nil {
		fmt.Fprintf(out, "  Output:    %s across %d files\n", humanize.IBytes(uint64(*report.FinalSize)), len(report.StepResults))
		if expires := api.ParseTime(report.ExpiresAt); !expires.IsZero() {
			fmt.Fprintf(out, "  Expires:   %s\n", humanize.Time(expires))
		}
	}
	if len(report.StepResults) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.StepResults))
	for _, step := range report.StepResults {
		rows = append(rows, []string{
			kindTitle(step.Kind),
			step.FileName,
			humanize.IBytes(uint64(step.FileSize)),
			step.DownloadRef,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"Step", "File", "Size", "Download"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	}))
}
