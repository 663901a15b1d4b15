// Package app builds the replication pipeline from configuration, it is
// shared by the CLI and the server.
package app

import (
	"context"
	"fmt"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/credential"
	"lotcopy-backend/internal/fetcher"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/journal"
	"lotcopy-backend/internal/replicator"
	"lotcopy-backend/internal/resolver"
	"lotcopy-backend/internal/submitter"
	"lotcopy-backend/internal/template"
	"lotcopy-backend/lib/restyutil"
)

type App struct {
	Config      Config
	Gateway     *gateway.Client
	Credentials credential.Provider
	Resolver    resolver.Resolver
	Fetcher     fetcher.Fetcher
	Catalog     fetcher.Catalog
	Acquirer    template.Acquirer
	Submitter   submitter.Submitter
	// Journal is nil when none is configured.
	Journal    *journal.Journal
	Replicator replicator.Replicator
}

func New(ctx context.Context, cfg Config, tel telemetry.API) (*App, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	opts := gateway.Options{
		BaseUrl:           cfg.Gateway.BaseUrl,
		GoldenKey:         cfg.Gateway.GoldenKey,
		UserAgent:         cfg.Gateway.UserAgent,
		Timeout:           cfg.Gateway.Timeout(),
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		CloudflareBypass:  cfg.Gateway.CloudflareBypass,
		Routes:            cfg.Gateway.Routes,
		Tracing:           cfg.Gateway.Tracing,
	}
	if cfg.Gateway.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Gateway.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("init dump output: %w", err)
		}
		opts.DumpOutput = output
	}
	client, err := gateway.NewClient(opts, tel)
	if err != nil {
		return nil, err
	}

	var credentials credential.Provider
	if cfg.Auth.Mode == "form" {
		credentials = credential.NewFormProvider(client, cfg.Auth.ProbePath, cfg.Auth.ProbeSubcategory, tel)
	} else {
		credentials = credential.NewEndpointProvider(client, tel)
	}

	policy, err := fetcher.ParseDetailPolicy(cfg.Replicate.Detail)
	if err != nil {
		return nil, err
	}
	acquirer, err := template.NewAcquirer(cfg.Template.Strategy, client, tel)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		Gateway:     client,
		Credentials: credentials,
		Resolver:    resolver.New(client, tel),
		Fetcher:     fetcher.New(client, policy, tel),
		Acquirer:    acquirer,
		Submitter:   submitter.New(client, tel),
	}
	a.Catalog = fetcher.NewCatalog(a.Fetcher, a.Resolver, tel)

	repOpts := replicator.Options{Parallelism: cfg.Replicate.Parallelism}
	if cfg.JournalEnabled() {
		a.Journal, err = journal.Open(ctx, cfg.Journal, tel)
		if err != nil {
			return nil, err
		}
		repOpts.Recorder = a.Journal
	}

	a.Replicator = replicator.New(
		a.Credentials,
		a.Resolver,
		a.Fetcher,
		a.Acquirer,
		a.Submitter,
		repOpts,
		tel,
	)
	return a, nil
}

func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}
