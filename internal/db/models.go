package db

import (
	"database/sql"
)

type Run struct {
	ID            string
	UserID        int64
	SubcategoryID int64
	StartedAt     int64
	FinishedAt    int64
	Copied        int64
	Failed        int64
	Error         string
}

type Outcome struct {
	RunID            string
	Position         int64
	SubcategoryID    int64
	SourceListingID  int64
	Stage            string
	CreatedListingID sql.NullInt64
	Error            string
}
