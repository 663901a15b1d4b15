package main

import (
	"context"

	"lotcopy-backend/cmd/lotcopy/commands"
	"lotcopy-backend/internal/components/telemetry"
	libtelemetry "lotcopy-backend/lib/telemetry"
	"lotcopy-backend/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	tel, err := libtelemetry.SetupFromEnv(ctx, "lotcopy")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
