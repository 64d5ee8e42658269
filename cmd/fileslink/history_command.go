package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fileslink/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ingestion attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			attempts, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, attempts)
			}
			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No ingestion attempts recorded")
				return nil
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(attempts))
			for _, a := range attempts {
				detail := a.UniqueID
				if a.Outcome == history.OutcomeFailed {
					detail = a.Error
				}
				size := ""
				if a.FileSize > 0 {
					size = humanize.IBytes(uint64(a.FileSize))
				}
				rows = append(rows, []string{
					a.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					outcomeLabel(a.Outcome, colorize),
					a.SourceKind,
					a.Summary,
					size,
					a.Duration().Round(10 * time.Millisecond).String(),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Outcome", "Source", "Summary", "Size", "Took", "ID / Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d succeeded, %d failed (%d total)\n", stats.Succeeded, stats.Failed, stats.Total())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func formatUnix(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Unix(seconds, 0).Local().Format("2006-01-02 15:04")
}
