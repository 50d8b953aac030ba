package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"subscreen/internal/config"
	"subscreen/internal/denylist"
)

func newDenylistCommand(ctx *commandContext) *cobra.Command {
	denylistCmd := &cobra.Command{
		Use:   "denylist",
		Short: "Inspect and manage the rejection store",
	}

	denylistCmd.AddCommand(newDenylistListCommand(ctx))
	denylistCmd.AddCommand(newDenylistStatsCommand(ctx))
	denylistCmd.AddCommand(newDenylistCheckCommand(ctx))
	denylistCmd.AddCommand(newDenylistRemoveCommand(ctx))
	denylistCmd.AddCommand(newDenylistClearCommand(ctx))

	return denylistCmd
}

func newDenylistListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live denylist entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				entries, err := store.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, entries)
				}

				ids := make([]string, 0, len(entries))
				for id := range entries {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					entry := entries[id]
					rows = append(rows, []string{
						id,
						entry.Reason,
						fmt.Sprintf("%.3f", entry.Confidence),
						fmt.Sprintf("%d", entry.Attempts),
						entry.ExpiresAt.Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Video", "Reason", "Confidence", "Attempts", "Expires"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")
	return cmd
}

func newDenylistStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show live entry counts by reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, stats)
				}

				reasons := make([]string, 0, len(stats.ByReason))
				for reason := range stats.ByReason {
					reasons = append(reasons, reason)
				}
				sort.Strings(reasons)

				rows := make([][]string, 0, len(reasons)+1)
				for _, reason := range reasons {
					rows = append(rows, []string{reason, fmt.Sprintf("%d", stats.ByReason[reason])})
				}
				rows = append(rows, []string{"total", fmt.Sprintf("%d", stats.Total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Reason", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit stats as JSON")
	return cmd
}

func newDenylistCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <video-id>",
		Short: "Check whether an identifier is denylisted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				id := strings.TrimSpace(args[0])
				blocked, err := store.IsBlacklisted(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, map[bool]string{
					true:  "denylisted",
					false: "clear",
				}[blocked])
				return nil
			})
		},
	}
}

func newDenylistClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every denylist entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
				return nil
			})
		},
	}
}

func newDenylistRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <video-id>",
		Short: "Force-delete a denylist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				id := strings.TrimSpace(args[0])
				if err := store.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				return nil
			})
		},
	}
}
