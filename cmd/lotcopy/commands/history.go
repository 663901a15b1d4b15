package commands

import (
	"fmt"
	"strconv"
	"time"

	"lotcopy-backend/cmd/lotcopy/utils"
	"lotcopy-backend/internal/journal"

	"github.com/spf13/cobra"
)

var historyLimit *int
var historyJournal *string

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The number of runs to show.")
	historyJournal = historyCmd.Flags().String("journal", "", "Journal database file, overrides journal.file.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run_id] [--limit <n>] [--journal <path/to/journal.db>]",
	Short: "Shows recorded runs, or the outcomes of one run.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := readConfig()
		if *historyJournal != "" {
			cfg.Journal.File = *historyJournal
			cfg.Journal.Url = ""
		}
		if !cfg.JournalEnabled() {
			return fmt.Errorf("no journal configured, set journal.file or pass --journal")
		}

		j, err := journal.Open(cmd.Context(), cfg.Journal, newTelemetry())
		if err != nil {
			return err
		}
		defer j.Close()

		if len(args) == 1 {
			return printOutcomes(cmd, j, args[0])
		}

		runs, err := j.Runs(cmd.Context(), *historyLimit)
		if err != nil {
			return err
		}
		t := utils.NewTable()
		t.AppendHeader([]any{"Run", "User", "Subcategory", "Started", "Took", "Copied", "Failed", "Error"})
		for _, run := range runs {
			t.AppendRow([]any{
				run.ID,
				run.UserID,
				run.Subcategory.String(),
				run.StartedAt.Local().Format(time.DateTime),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
				run.Copied,
				run.Failed,
				utils.Truncate(run.Error, 40),
			})
		}
		t.Render()
		return nil
	},
}

func printOutcomes(cmd *cobra.Command, j *journal.Journal, runID string) error {
	run, err := j.Run(cmd.Context(), runID)
	if err != nil {
		return err
	}
	outcomes, err := j.Outcomes(cmd.Context(), runID)
	if err != nil {
		return err
	}

	t := utils.NewTable()
	t.SetTitle(fmt.Sprintf("run %s for user %d: copied %d, failed %d", run.ID, run.UserID, run.Copied, run.Failed))
	t.AppendHeader([]any{"Subcategory", "Source", "Stage", "Created", "Error"})
	for _, outcome := range outcomes {
		created := ""
		if outcome.CreatedListingID != nil {
			created = formatInt(*outcome.CreatedListingID)
		}
		t.AppendRow([]any{
			outcome.Subcategory.String(),
			outcome.SourceListingID,
			outcome.Stage,
			created,
			utils.Truncate(outcome.Error, 60),
		})
	}
	t.Render()
	return nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
