package db

import (
	"context"
)

const createRun = `-- name: CreateRun :exec
insert into runs (
    id, user_id, subcategory_id, started_at, finished_at, copied, failed, error
) values (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateRunParams struct {
	ID            string
	UserID        int64
	SubcategoryID int64
	StartedAt     int64
	FinishedAt    int64
	Copied        int64
	Failed        int64
	Error         string
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.UserID,
		arg.SubcategoryID,
		arg.StartedAt,
		arg.FinishedAt,
		arg.Copied,
		arg.Failed,
		arg.Error,
	)
	return err
}

const createOutcome = `-- name: CreateOutcome :exec
insert into outcomes (
    run_id, position, subcategory_id, source_listing_id, stage, created_listing_id, error
) values (?, ?, ?, ?, ?, ?, ?)
`

type CreateOutcomeParams = Outcome

func (q *Queries) CreateOutcome(ctx context.Context, arg CreateOutcomeParams) error {
	_, err := q.db.ExecContext(ctx, createOutcome,
		arg.RunID,
		arg.Position,
		arg.SubcategoryID,
		arg.SourceListingID,
		arg.Stage,
		arg.CreatedListingID,
		arg.Error,
	)
	return err
}

const getRun = `-- name: GetRun :one
select id, user_id, subcategory_id, started_at, finished_at, copied, failed, error from runs
where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i Run
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.SubcategoryID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.Copied,
		&i.Failed,
		&i.Error,
	)
	return i, err
}

const listRuns = `-- name: ListRuns :many
select id, user_id, subcategory_id, started_at, finished_at, copied, failed, error from runs
order by started_at desc, rowid desc
limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.SubcategoryID,
			&i.StartedAt,
			&i.FinishedAt,
			&i.Copied,
			&i.Failed,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOutcomes = `-- name: ListOutcomes :many
select run_id, position, subcategory_id, source_listing_id, stage, created_listing_id, error from outcomes
where run_id = ?
order by position asc
`

func (q *Queries) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := q.db.QueryContext(ctx, listOutcomes, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Outcome
	for rows.Next() {
		var i Outcome
		if err := rows.Scan(
			&i.RunID,
			&i.Position,
			&i.SubcategoryID,
			&i.SourceListingID,
			&i.Stage,
			&i.CreatedListingID,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
