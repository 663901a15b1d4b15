package commands

import (
	"lotcopy-backend/cmd/lotcopy/utils"
	"lotcopy-backend/internal/lots"

	"github.com/spf13/cobra"
)

var templateStrategy *string

func init() {
	templateStrategy = templateCmd.Flags().String("strategy", "", "Template strategy (structured, form, fallback), overrides template.strategy.")
	rootCmd.AddCommand(templateCmd)
}

var templateCmd = &cobra.Command{
	Use:   "template <subcategory_id> [--strategy <strategy>]",
	Short: "Prints the creation template of a subcategory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := lots.ParseSubcategory(args[0])
		if err != nil {
			return err
		}

		cfg := readConfig()
		if *templateStrategy != "" {
			cfg.Template.Strategy = *templateStrategy
		}
		a := createApp(cmd.Context(), cfg)
		defer a.Close()

		tpl, err := a.Acquirer.Acquire(cmd.Context(), sub)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.SetTitle(tpl.Kind.String() + " template for " + tpl.Subcategory.String())
		t.AppendHeader([]any{"Field", "Default"})
		for _, pair := range tpl.Fields.Pairs() {
			t.AppendRow([]any{pair.Key, utils.Truncate(pair.Value, 60)})
		}
		t.Render()
		return nil
	},
}
