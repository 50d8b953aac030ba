package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subscreen/internal/config"
	"subscreen/internal/denylist"
	"subscreen/internal/frames"
	"subscreen/internal/journal"
	"subscreen/internal/screening"
)

func newScreenCommand(ctx *commandContext) *cobra.Command {
	var videoID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "screen <video-path>",
		Short: "Screen one video for embedded subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			id := strings.TrimSpace(videoID)
			if id == "" {
				id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			return ctx.withStore(func(cfg *config.Config, store denylist.Store) error {
				logger, err := ctx.newLogger()
				if err != nil {
					return err
				}
				jnl, err := journal.Open(cfg)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer jnl.Close()

				sampler := frames.NewSampler(cfg, logger)
				svc, err := screening.NewService(cfg, sampler, store, jnl, logger)
				if err != nil {
					return err
				}

				outcome, err := svc.Evaluate(cmd.Context(), id, path)
				if err != nil {
					return err
				}

				if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
					return writeJSON(cmd, outcome)
				}

				rows := [][]string{
					{"Video", id},
					{"Bucket", strings.ToUpper(string(outcome.Bucket))},
					{"Confidence", fmt.Sprintf("%.3f", outcome.Confidence)},
					{"Frames analyzed", fmt.Sprintf("%d", outcome.Info.FramesAnalyzed)},
					{"Frames deduped", fmt.Sprintf("%d", outcome.Info.FramesDeduped)},
					{"Persistence", fmt.Sprintf("%.2f", outcome.Info.Evidence.PersistenceRatio)},
					{"Longest run", fmt.Sprintf("%d", outcome.Info.Evidence.LongestRun)},
					{"Conflicts", fmt.Sprintf("%d", outcome.Info.Conflicts)},
					{"Known bad", yesNo(outcome.KnownBad)},
					{"Escalated", yesNo(outcome.Escalated)},
					{"Elapsed", outcome.Duration.Round(time.Millisecond).String()},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoID, "id", "", "Video identifier (defaults to the file name)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the outcome as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
