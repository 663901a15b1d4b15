package replicator

import (
	"time"

	"lotcopy-backend/internal/lots"
)

// Stage is the pipeline step an outcome was decided at.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageFetch    Stage = "fetch"
	StageDetail   Stage = "detail"
	StageTemplate Stage = "template"
	StageMap      Stage = "map"
	StageSubmit   Stage = "submit"
)

// Outcome is the result of one listing, or of a whole subcategory when
// SourceListingID is zero. Exactly one of Created and Err is set.
type Outcome struct {
	Subcategory     lots.SubcategoryID
	SourceListingID int64
	Stage           Stage
	Created         *lots.Listing
	Err             error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Created != nil
}

type Request struct {
	UserID      int64
	Subcategory lots.SubcategoryID
}

type BatchResult struct {
	RunID      string
	Request    Request
	StartedAt  time.Time
	FinishedAt time.Time
	// Subcategories are the ones resolved for the request, in order.
	Subcategories []lots.SubcategoryID
	// Copied are the created listings in processing order.
	Copied   []lots.Listing
	Outcomes []Outcome
}

// NothingCopied tells an empty but otherwise successful batch apart.
func (b BatchResult) NothingCopied() bool {
	return len(b.Copied) == 0
}

func (b BatchResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
