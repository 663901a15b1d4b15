package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"
	configlibsql "lotcopy-backend/lib/configutil/libsql"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	j, err := Open(context.Background(), configlibsql.Struct{File: ":memory:"}, telemetry.NewRecorder())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func batch(runID string, startedAt time.Time) replicator.BatchResult {
	created := lots.Listing{ID: 900, SubcategoryID: 10}
	return replicator.BatchResult{
		RunID:         runID,
		Request:       replicator.Request{UserID: 123, Subcategory: lots.AllSubcategories},
		StartedAt:     startedAt,
		FinishedAt:    startedAt.Add(time.Second),
		Subcategories: []lots.SubcategoryID{10, 20},
		Copied:        []lots.Listing{created},
		Outcomes: []replicator.Outcome{
			{Subcategory: 10, SourceListingID: 1, Stage: replicator.StageSubmit, Created: &created},
			{Subcategory: 20, Stage: replicator.StageFetch, Err: errors.New("status 500")},
		},
	}
}

func TestRecordAndRead(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	started := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, j.RecordBatch(ctx, batch("run-1", started), nil))

	run, err := j.Run(ctx, "run-1")
	require.NoError(t, err)
	expected := Run{
		ID:          "run-1",
		UserID:      123,
		Subcategory: lots.AllSubcategories,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
		Copied:      1,
		Failed:      1,
	}
	if diff := cmp.Diff(expected, run); diff != "" {
		t.Fatal(diff)
	}

	outcomes, err := j.Outcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.Equal(t, int64(900), *outcomes[0].CreatedListingID)
	require.Equal(t, replicator.StageSubmit, outcomes[0].Stage)
	require.Nil(t, outcomes[1].CreatedListingID)
	require.Equal(t, "status 500", outcomes[1].Error)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	base := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, j.RecordBatch(ctx, batch("old", base), nil))
	require.NoError(t, j.RecordBatch(ctx, batch("new", base.Add(time.Hour)), context.Canceled))

	runs, err := j.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "new", runs[0].ID)
	require.Equal(t, context.Canceled.Error(), runs[0].Error)
	require.Equal(t, "old", runs[1].ID)

	runs, err = j.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestDuplicateRunIDFails(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	require.NoError(t, j.RecordBatch(ctx, batch("same", time.Now()), nil))
	require.Error(t, j.RecordBatch(ctx, batch("same", time.Now()), nil))

	// the failed transaction left nothing behind
	outcomes, err := j.Outcomes(ctx, "same")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
}
