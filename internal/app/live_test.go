package app

import (
	"context"
	"testing"
	"time"

	devenv "lotcopy-backend/dev/env"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/lots"

	"github.com/stretchr/testify/require"
)

// Read-only checks against a real gateway, nothing is created.
func TestLiveGateway(t *testing.T) {
	live, err := devenv.GetLiveGatewayConfig()
	if err != nil || live.GoldenKey == "" || live.UserID == 0 {
		t.Skip("skipping test because no valid test config was found at dev/.state/gateway.json5")
	}

	cfg := Config{
		Gateway: GatewayConfig{
			BaseUrl:        live.BaseUrl,
			GoldenKey:      live.GoldenKey,
			UserAgent:      live.UserAgent,
			TimeoutSeconds: 30,
		},
		Replicate: ReplicateConfig{Detail: "best-effort"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tel := telemetry.NewRecorder()
	a, err := New(ctx, cfg, tel)
	require.NoError(t, err)
	defer a.Close()

	cred, err := a.Credentials.Authenticate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cred.CSRFToken)

	subs, err := a.Resolver.Enumerate(ctx, live.UserID)
	require.NoError(t, err)
	require.NotEmpty(t, subs)

	sub := subs[0]
	if live.Subcategory > 0 {
		sub = lots.SubcategoryID(live.Subcategory)
	}
	listings, err := a.Fetcher.FetchByUser(ctx, live.UserID, sub)
	require.NoError(t, err)
	for _, listing := range listings {
		require.Equal(t, sub, listing.SubcategoryID)
	}

	tpl, err := a.Acquirer.Acquire(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, sub, tpl.Subcategory)
	require.NotZero(t, tpl.Fields.Len())
}
