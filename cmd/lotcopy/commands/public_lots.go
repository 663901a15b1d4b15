package commands

import (
	"fmt"

	"lotcopy-backend/internal/lots"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(publicLotsCmd)
}

var publicLotsCmd = &cobra.Command{
	Use:   "public-lots <subcategory_id>",
	Short: "Lists every seller's public listings in a subcategory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := lots.ParseSubcategory(args[0])
		if err != nil {
			return err
		}
		if !sub.Explicit() {
			return fmt.Errorf("public-lots needs a subcategory id")
		}

		a := createApp(cmd.Context(), readConfig())
		defer a.Close()

		listings, err := a.Catalog.FetchBySubcategory(cmd.Context(), sub)
		if err != nil {
			return err
		}
		t := listingTable(listings)
		t.SetTitle(fmt.Sprintf("public lots in %s", sub))
		t.Render()
		return nil
	},
}
