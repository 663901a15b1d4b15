package commands

import (
	"fmt"
	"log/slog"

	"lotcopy-backend/cmd/lotcopy/utils"
	"lotcopy-backend/internal/lots"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var lotsDetail *string

func init() {
	lotsDetail = lotsCmd.Flags().String("detail", "none", "Detail policy (none, best-effort, required).")
	rootCmd.AddCommand(lotsCmd)
}

var lotsCmd = &cobra.Command{
	Use:   "lots <user_id> [subcategory_id|all] [--detail <policy>]",
	Short: "Lists a seller's listings without copying them, in every subcategory by default.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		sub := lots.AllSubcategories
		if len(args) == 2 {
			sub, err = lots.ParseSubcategory(args[1])
			if err != nil {
				return err
			}
		}

		cfg := readConfig()
		cfg.Replicate.Detail = *lotsDetail
		a := createApp(cmd.Context(), cfg)
		defer a.Close()

		result, err := a.Catalog.FetchAllByUser(cmd.Context(), userID, sub)
		if err != nil {
			return err
		}
		for _, failure := range result.Failures {
			slog.Warn("skipped subcategory", "subcategory", failure.Subcategory, "err", failure.Err)
		}
		listings, failures := a.Catalog.Enrich(cmd.Context(), result.Listings)
		for _, failure := range failures {
			slog.Warn("no details", "listing", failure.ListingID, "err", failure.Err)
		}

		t := listingTable(listings)
		t.SetTitle(fmt.Sprintf("user %d: %d subcategories, %d skipped", userID, len(result.Subcategories), len(result.Failures)))
		t.Render()
		return nil
	},
}

func listingTable(listings []lots.Listing) table.Writer {
	t := utils.NewTable()
	t.AppendHeader([]any{"Subcategory", "ID", "Title", "Price", "Server", "Amount", "Auto", "Seller", "Description"})
	for _, listing := range listings {
		amount := ""
		if listing.Amount != nil {
			amount = formatInt(*listing.Amount)
		}
		t.AppendRow([]any{
			listing.SubcategoryID.String(),
			listing.ID,
			utils.Truncate(listing.Title, 40),
			listing.Price.String(),
			listing.Server,
			amount,
			listing.AutoDelivery,
			listing.SellerUsername,
			utils.Truncate(firstNonEmpty(listing.DetailedDescription, listing.Description), 40),
		})
	}
	t.AppendFooter([]any{"", "", "total", len(listings)})
	return t
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
