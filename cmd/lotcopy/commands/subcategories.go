package commands

import (
	"lotcopy-backend/cmd/lotcopy/utils"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subcategoriesCmd)
}

var subcategoriesCmd = &cobra.Command{
	Use:   "subcategories <user_id>",
	Short: "Lists the subcategories a seller has listings in.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		a := createApp(cmd.Context(), readConfig())
		defer a.Close()

		subs, err := a.Resolver.Enumerate(cmd.Context(), userID)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader([]any{"#", "Subcategory"})
		for i, sub := range subs {
			t.AppendRow([]any{i + 1, sub.String()})
		}
		t.Render()
		return nil
	},
}
