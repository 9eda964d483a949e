package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"narrate/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, ctx, "")
		},
	}

	var statusFilter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, ctx, statusFilter)
		},
	}
	listCmd.Flags().StringVar(&statusFilter, "status", "", "Only show runs with this status")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a single run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Video:     %s\n", run.VideoPath)
			fmt.Fprintf(out, "Status:    %s\n", run.Status)
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
			}
			fmt.Fprintf(out, "Segments:  %d (%d skipped)\n", run.SegmentCount, run.SkippedCount)
			if run.ScriptPath != "" {
				fmt.Fprintf(out, "Script:    %s\n", run.ScriptPath)
			}
			if run.SubtitlePath != "" {
				fmt.Fprintf(out, "Subtitles: %s\n", run.SubtitlePath)
			}
			if run.AudioPath != "" {
				fmt.Fprintf(out, "Audio:     %s\n", run.AudioPath)
			}
			if run.OutputPath != "" {
				fmt.Fprintf(out, "Output:    %s\n", run.OutputPath)
			}
			fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Updated:   %s\n", run.UpdatedAt.Local().Format(time.RFC3339))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and failed runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}

	runsCmd.AddCommand(listCmd)
	runsCmd.AddCommand(showCmd)
	runsCmd.AddCommand(clearCmd)
	return runsCmd
}

func listRuns(cmd *cobra.Command, ctx *commandContext, statusFilter string) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var filters []runs.Status
	if statusFilter != "" {
		status, ok := runs.ParseStatus(statusFilter)
		if !ok {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		filters = append(filters, status)
	}

	all, err := store.List(cmd.Context(), filters...)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(all))
	for _, run := range all {
		rows = append(rows, []string{
			run.ID[:8],
			run.VideoPath,
			string(run.Status),
			strconv.Itoa(run.SegmentCount),
			strconv.Itoa(run.SkippedCount),
			run.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Video", "Status", "Segments", "Skipped", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
