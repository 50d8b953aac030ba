package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subscreen/internal/config"
	"subscreen/internal/journal"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the screening decision log",
	}

	journalCmd.AddCommand(newJournalRecentCommand(ctx))
	journalCmd.AddCommand(newJournalHistoryCommand(ctx))

	return journalCmd
}

func newJournalRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, jnl *journal.Journal) error {
				records, err := jnl.ListRecent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, records)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of decisions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func newJournalHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history <video-id>",
		Short: "Show every decision recorded for one identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(cfg *config.Config, jnl *journal.Journal) error {
				records, err := jnl.History(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, records)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRecords(records))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func renderRecords(records []journal.Record) string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.VideoID,
			strings.ToUpper(record.Bucket),
			fmt.Sprintf("%.3f", record.Confidence),
			fmt.Sprintf("%dms", record.DurationMS),
		})
	}
	return renderTable([]string{"When", "Video", "Bucket", "Confidence", "Elapsed"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight})
}
