package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"winlock/internal/config"
	"winlock/internal/journal"
)

const runIDDisplayLen = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent override, hotkey and lock actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournalFn(cmd.Context(), config.JournalPath(ctx.configPath()))
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "Number of entries to show")
	return cmd
}

func renderHistory(entries []journal.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Time", "Run", "Action", "Detail", "Result"})
	for _, e := range entries {
		result := "ok"
		if e.Failed() {
			result = "failed: " + e.Error
		}
		tw.AppendRow(table.Row{
			e.Time.Local().Format(time.DateTime),
			shortRunID(e.RunID),
			e.Action,
			e.Detail,
			result,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 48},
		{Number: 5, WidthMax: 60, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shortRunID(runID string) string {
	if len(runID) > runIDDisplayLen {
		return runID[:runIDDisplayLen]
	}
	return runID
}
