package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subscreen/internal/config"
	"subscreen/internal/denylist"
	"subscreen/internal/intake"
)

// newFilterCommand exposes the intake stage: dedup candidate ids, drop the
// denylisted ones, and report how many to overfetch upstream.
func newFilterCommand(ctx *commandContext) *cobra.Command {
	var requested int

	cmd := &cobra.Command{
		Use:   "filter [id ...]",
		Short: "Dedup candidate ids and drop denylisted ones",
		Long: "Reads candidate video identifiers from the arguments, or from stdin\n" +
			"when none are given, and prints the surviving ids one per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if len(ids) == 0 {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line != "" {
						ids = append(ids, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read ids from stdin: %w", err)
				}
			}

			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}
				stage := intake.NewStage(store, cfg.Intake.OverfetchFactor, logger)

				kept, err := stage.Filter(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, id := range kept {
					fmt.Fprintln(out, id)
				}
				if requested > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "fetch %d candidates to net %d\n",
						stage.OverfetchCount(requested), requested)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&requested, "want", 0, "Report the overfetch count for this many unique videos")
	return cmd
}
