// Package journal keeps a history of replication batches and their
// per-listing outcomes in sqlite (or a remote libsql database).
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/db"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"
	configlibsql "lotcopy-backend/lib/configutil/libsql"
)

const (
	report_journal_record = "journal.record"
)

type Journal struct {
	sqlDB  *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
}

// Open opens the configured database and migrates it.
func Open(ctx context.Context, config configlibsql.Struct, tel telemetry.API) (*Journal, error) {
	sqlDB, err := config.OpenAndMigrate(ctx, db.Schema)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(sqlDB, tel), nil
}

// New wraps an already migrated database.
func New(sqlDB *sql.DB, tel telemetry.API) *Journal {
	assert.NotNil(sqlDB)
	assert.NotNil(tel)
	return &Journal{
		sqlDB:  sqlDB,
		qry:    db.New(sqlDB),
		makeTx: db.NewMakeTx(sqlDB),
		tel:    telemetry.NewScopedAPI("journal", tel),
	}
}

func (j *Journal) Close() error {
	return j.sqlDB.Close()
}

// RecordBatch stores a finished batch and its outcomes in one transaction.
func (j *Journal) RecordBatch(ctx context.Context, result replicator.BatchResult, runErr error) error {
	tx, discard, commit, err := j.makeTx(ctx)
	if err != nil {
		j.tel.ReportBroken(report_journal_record, err)
		return err
	}
	defer discard()

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	err = tx.CreateRun(ctx, db.CreateRunParams{
		ID:            result.RunID,
		UserID:        result.Request.UserID,
		SubcategoryID: int64(result.Request.Subcategory),
		StartedAt:     result.StartedAt.UnixMilli(),
		FinishedAt:    result.FinishedAt.UnixMilli(),
		Copied:        int64(len(result.Copied)),
		Failed:        int64(len(result.Failures())),
		Error:         errText,
	})
	if err != nil {
		j.tel.ReportBroken(report_journal_record, result.RunID, err)
		return fmt.Errorf("record run %s: %w", result.RunID, err)
	}

	for i, outcome := range result.Outcomes {
		row := db.CreateOutcomeParams{
			RunID:           result.RunID,
			Position:        int64(i),
			SubcategoryID:   int64(outcome.Subcategory),
			SourceListingID: outcome.SourceListingID,
			Stage:           string(outcome.Stage),
		}
		if outcome.Created != nil {
			row.CreatedListingID = sql.NullInt64{Int64: outcome.Created.ID, Valid: true}
		}
		if outcome.Err != nil {
			row.Error = outcome.Err.Error()
		}
		err = tx.CreateOutcome(ctx, row)
		if err != nil {
			j.tel.ReportBroken(report_journal_record, result.RunID, err)
			return fmt.Errorf("record outcome %d of run %s: %w", i, result.RunID, err)
		}
	}

	return commit()
}

type Run struct {
	ID          string
	UserID      int64
	Subcategory lots.SubcategoryID
	StartedAt   time.Time
	FinishedAt  time.Time
	Copied      int
	Failed      int
	Error       string
}

func runFromRow(row db.Run) Run {
	return Run{
		ID:          row.ID,
		UserID:      row.UserID,
		Subcategory: lots.SubcategoryID(row.SubcategoryID),
		StartedAt:   time.UnixMilli(row.StartedAt),
		FinishedAt:  time.UnixMilli(row.FinishedAt),
		Copied:      int(row.Copied),
		Failed:      int(row.Failed),
		Error:       row.Error,
	}
}

// Runs lists the most recent runs first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		out[i] = runFromRow(row)
	}
	return out, nil
}

func (j *Journal) Run(ctx context.Context, id string) (Run, error) {
	row, err := j.qry.GetRun(ctx, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return runFromRow(row), nil
}

type OutcomeRecord struct {
	Subcategory      lots.SubcategoryID
	SourceListingID  int64
	Stage            replicator.Stage
	CreatedListingID *int64
	Error            string
}

// Outcomes returns the outcomes of a run in the order they happened.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := j.qry.ListOutcomes(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes of %s: %w", runID, err)
	}
	out := make([]OutcomeRecord, len(rows))
	for i, row := range rows {
		record := OutcomeRecord{
			Subcategory:     lots.SubcategoryID(row.SubcategoryID),
			SourceListingID: row.SourceListingID,
			Stage:           replicator.Stage(row.Stage),
			Error:           row.Error,
		}
		if row.CreatedListingID.Valid {
			id := row.CreatedListingID.Int64
			record.CreatedListingID = &id
		}
		out[i] = record
	}
	return out, nil
}
