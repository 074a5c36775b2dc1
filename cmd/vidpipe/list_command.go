package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidpipe/internal/api"
	"vidpipe/internal/config"
	"vidpipe/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				reports, err := api.NewJobService(store, cfg.API.PublicBaseURL).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					if reports == nil {
						reports = []api.Report{}
					}
					return writeJSON(cmd, api.JobListResponse{Jobs: reports})
				}
				out := cmd.OutOrStdout()
				if len(reports) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(reports))
				for _, r := range reports {
					rows = append(rows, listRow(r, colorize))
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers: []string{"ID", "Source", "Status", "Progress", "Size", "Output", "Created"},
					rows:    rows,
					aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				}))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print reports as JSON")
	return cmd
}

func listRow(r api.Report, colorize bool) []string {
	output := "-"
	if r.FinalSize != nil {
		output = humanize.IBytes(uint64(*r.FinalSize))
	}
	created := r.CreatedAt
	if t := api.ParseTime(r.CreatedAt); !t.IsZero() {
		created = humanize.Time(t)
	}
	return []string{
		r.ID,
		truncate(r.OriginalFileName, 32),
		colorStatus(r.Status, colorize),
		strconv.Itoa(r.Progress) + "%",
		humanize.IBytes(uint64(r.InitialSize)),
		output,
		created,
	}
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
