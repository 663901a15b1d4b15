package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"lotcopy-backend/internal/app"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lotcopy",
	Short: "lotcopy copies a seller's marketplace listings onto the configured account.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() app.Config {
	cfg, err := app.ReadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func createApp(ctx context.Context, cfg app.Config) *app.App {
	a, err := app.New(ctx, cfg, newTelemetry())
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	return a
}

func newTelemetry() telemetry.API {
	return telemetry.NewSlogAPI(nil)
}

func parseUserID(text string) (int64, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", text)
	}
	return id, nil
}
