package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"lotcopy-backend/cmd/lotcopy/utils"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"

	"github.com/spf13/cobra"
)

var replicateSubcategory *string
var replicateParallel *int
var replicateDetail *string
var replicateJournal *string

func init() {
	replicateSubcategory = replicateCmd.Flags().String("subcategory", "all", "The subcategory to copy, or \"all\".")
	replicateParallel = replicateCmd.Flags().Int("parallel", 0, "Subcategories processed at once, overrides replicate.parallelism.")
	replicateDetail = replicateCmd.Flags().String("detail", "", "Detail policy (none, best-effort, required), overrides replicate.detail.")
	replicateJournal = replicateCmd.Flags().String("journal", "", "Journal database file, overrides journal.file.")
	rootCmd.AddCommand(replicateCmd)
}

var replicateCmd = &cobra.Command{
	Use:   "replicate <user_id> [--subcategory <id|all>] [--parallel <n>] [--detail <policy>] [--journal <path/to/journal.db>]",
	Short: "Copies a seller's listings onto the configured account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		sub, err := lots.ParseSubcategory(*replicateSubcategory)
		if err != nil {
			return err
		}

		cfg := readConfig()
		if *replicateParallel > 0 {
			cfg.Replicate.Parallelism = *replicateParallel
		}
		if *replicateDetail != "" {
			cfg.Replicate.Detail = *replicateDetail
		}
		if *replicateJournal != "" {
			cfg.Journal.File = *replicateJournal
			cfg.Journal.Url = ""
		}

		a := createApp(cmd.Context(), cfg)
		defer a.Close()

		result, err := a.Replicator.Replicate(cmd.Context(), replicator.Request{
			UserID:      userID,
			Subcategory: sub,
		})
		printBatch(result)
		if err != nil {
			if errors.Is(err, cmd.Context().Err()) {
				slog.Warn("interrupted, partial result above", "run_id", result.RunID)
			}
			return err
		}
		if result.NothingCopied() {
			return fmt.Errorf("nothing was copied")
		}
		return nil
	},
}

func printBatch(result replicator.BatchResult) {
	copied := utils.NewTable()
	copied.SetTitle(fmt.Sprintf("run %s: copied %d", result.RunID, len(result.Copied)))
	copied.AppendHeader([]any{"Subcategory", "ID", "Title", "Price"})
	for _, listing := range result.Copied {
		copied.AppendRow([]any{
			listing.SubcategoryID.String(),
			listing.ID,
			utils.Truncate(listing.Title, 48),
			listing.Price.String(),
		})
	}
	copied.Render()

	failures := result.Failures()
	if len(failures) == 0 {
		return
	}
	failed := utils.NewTable()
	failed.SetTitle(fmt.Sprintf("failed %d", len(failures)))
	failed.AppendHeader([]any{"Subcategory", "Listing", "Stage", "Error"})
	for _, outcome := range failures {
		failed.AppendRow([]any{
			outcome.Subcategory.String(),
			outcome.SourceListingID,
			string(outcome.Stage),
			utils.Truncate(outcome.Err.Error(), 80),
		})
	}
	failed.Render()
}
