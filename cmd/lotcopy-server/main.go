package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"lotcopy-backend/internal/app"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/server"
	libtelemetry "lotcopy-backend/lib/telemetry"
	"lotcopy-backend/lib/util/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := app.ReadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.AccessToken == "" {
		slog.Warn("server.access_token is empty, requests are not authenticated")
	}

	tel := telemetry.NewSlogAPI(nil)
	a, err := app.New(ctx, cfg, tel)
	if err != nil {
		serviceutil.Fatal("init pipeline", err)
	}
	defer a.Close()

	var history server.History
	if a.Journal != nil {
		history = a.Journal
	}
	srv := server.New(a.Replicator, a.Resolver, a.Catalog, history, tel)

	err = serviceutil.StartHttpServer(
		ctx,
		cfg.Server.Port,
		serviceutil.VerifyAccessToken(cfg.Server.AccessToken, srv.Handler()),
	)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := libtelemetry.SetupFromEnv(ctx, "lotcopy-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		tel.Shutdown(context.Background())
	}()
	libtelemetry.InstrumentPerfStats(ctx, 15*time.Second)
}
