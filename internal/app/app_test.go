package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway/gatewaytest"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `{
		gateway: { base_url: "http://gateway.invalid", golden_key: "from-file" },
		replicate: { parallelism: 2, detail: "none" },
	}`)

	t.Setenv(GoldenKeyEnv, "from-env")
	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Gateway.GoldenKey)
	require.Equal(t, 2, cfg.Replicate.Parallelism)
	require.False(t, cfg.JournalEnabled())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.Error(t, Config{Gateway: GatewayConfig{BaseUrl: "http://x"}}.Validate())
	require.Error(t, Config{
		Gateway: GatewayConfig{BaseUrl: "http://x", GoldenKey: "k"},
		Auth:    AuthConfig{Mode: "telepathy"},
	}.Validate())
}

func TestAppReplicatesAndJournals(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("POST /auth", 200, `{"username": "me", "id": 1, "csrfToken": "tok"}`)
	srv.HandleJSON("GET /lots-by-user/{sub}/{user}", 200, `[{"Id": 1, "Title": "Gold", "Price": 5.00}]`)
	srv.HandleJSON("GET /lot-fields/new/{sub}", 200, `{"price": "", "node_id": "", "csrf_token": ""}`)
	srv.HandleJSON("POST /create-lot", 200, `{"Id": 55}`)

	cfg := Config{
		Gateway: GatewayConfig{
			BaseUrl:           srv.URL,
			GoldenKey:         gatewaytest.GoldenKey,
			RequestsPerSecond: -1,
		},
		Replicate: ReplicateConfig{Detail: "none"},
	}
	cfg.Journal.File = ":memory:"

	ctx := context.Background()
	a, err := New(ctx, cfg, telemetry.NewRecorder())
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Replicator.Replicate(ctx, replicator.Request{UserID: 123, Subcategory: 10})
	require.NoError(t, err)
	require.Len(t, result.Copied, 1)
	require.Equal(t, lots.SubcategoryID(10), result.Copied[0].SubcategoryID)
	require.Equal(t, `{"price":"5","node_id":"10","csrf_token":"tok","offer_id":"0","short_description":"","description":"","param_0":"","quantity":""}`, srv.Requests("/create-lot")[0].Body)

	runs, err := a.Journal.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, result.RunID, runs[0].ID)
	require.Equal(t, 1, runs[0].Copied)
}
