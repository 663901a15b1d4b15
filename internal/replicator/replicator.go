// Package replicator drives the copy pipeline for one request: authenticate
// once, resolve subcategories, then fetch, template, map and submit every
// listing, isolating failures per listing and per subcategory.
package replicator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/credential"
	"lotcopy-backend/internal/fetcher"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/mapper"
	"lotcopy-backend/internal/template"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	report_replicate_auth     = "replicate.auth"
	report_replicate_resolve  = "replicate.resolve"
	report_replicate_fetch    = "replicate.fetch"
	report_replicate_listing  = "replicate.listing"
	report_replicate_copied   = "replicate.copied"
	report_replicate_failed   = "replicate.failed"
	report_replicate_recorder = "replicate.recorder"
)

type SubcategoryResolver interface {
	Resolve(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error)
}

type ListingFetcher interface {
	FetchByUser(ctx context.Context, userID int64, sub lots.SubcategoryID) ([]lots.Listing, error)
	Enrich(ctx context.Context, listings []lots.Listing) ([]lots.Listing, []fetcher.DetailFailure)
	Policy() fetcher.DetailPolicy
}

type ListingSubmitter interface {
	Submit(ctx context.Context, payload mapper.Payload) (lots.Listing, error)
}

// Recorder persists finished batches, see internal/journal.
type Recorder interface {
	RecordBatch(ctx context.Context, result BatchResult, runErr error) error
}

type Options struct {
	// Parallelism is the number of subcategories processed at once, values
	// below 2 process them sequentially.
	Parallelism int
	Recorder    Recorder
}

type Replicator struct {
	credentials credential.Provider
	resolver    SubcategoryResolver
	fetcher     ListingFetcher
	acquirer    template.Acquirer
	submitter   ListingSubmitter
	opts        Options
	tel         telemetry.API
}

func New(
	credentials credential.Provider,
	resolver SubcategoryResolver,
	fetcher ListingFetcher,
	acquirer template.Acquirer,
	submitter ListingSubmitter,
	opts Options,
	tel telemetry.API,
) Replicator {
	assert.NotNil(credentials)
	assert.NotNil(resolver)
	assert.NotNil(fetcher)
	assert.NotNil(acquirer)
	assert.NotNil(submitter)
	assert.NotNil(tel)

	return Replicator{
		credentials: credentials,
		resolver:    resolver,
		fetcher:     fetcher,
		acquirer:    acquirer,
		submitter:   submitter,
		opts:        opts,
		tel:         telemetry.NewScopedAPI("replicator", tel),
	}
}

// Replicate copies the user's listings. The returned error is either a
// *credential.AuthError or the context's error, in the second case the
// result holds everything done before cancellation. Every other failure is
// an Outcome.
func (r Replicator) Replicate(ctx context.Context, req Request) (BatchResult, error) {
	result := BatchResult{
		RunID:     uuid.NewString(),
		Request:   req,
		StartedAt: time.Now(),
	}
	result, err := r.replicate(ctx, req, result)
	result.FinishedAt = time.Now()

	if r.opts.Recorder != nil {
		// the batch is recorded even when the caller gave up on it
		recordErr := r.opts.Recorder.RecordBatch(context.WithoutCancel(ctx), result, err)
		if recordErr != nil {
			r.tel.ReportWarning(report_replicate_recorder, result.RunID, recordErr)
		}
	}
	return result, err
}

func (r Replicator) replicate(ctx context.Context, req Request, result BatchResult) (BatchResult, error) {
	cred, err := r.credentials.Authenticate(ctx)
	if err != nil {
		r.tel.ReportBroken(report_replicate_auth, req.UserID, err)
		var authErr *credential.AuthError
		if !errors.As(err, &authErr) {
			err = &credential.AuthError{Reason: "credential provider", Err: err}
		}
		return result, err
	}

	subs, err := r.resolver.Resolve(ctx, req.UserID, req.Subcategory)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		r.tel.ReportWarning(report_replicate_resolve, req.UserID, err)
		result.Outcomes = append(result.Outcomes, Outcome{
			Subcategory: req.Subcategory,
			Stage:       StageResolve,
			Err:         err,
		})
		return result, nil
	}
	result.Subcategories = subs

	perSub := make([]subResult, len(subs))
	if r.opts.Parallelism > 1 && len(subs) > 1 {
		var group errgroup.Group
		group.SetLimit(r.opts.Parallelism)
		for i, sub := range subs {
			group.Go(func() error {
				perSub[i] = r.processSubcategory(ctx, req.UserID, sub, cred)
				return nil
			})
		}
		group.Wait()
	} else {
		for i, sub := range subs {
			perSub[i] = r.processSubcategory(ctx, req.UserID, sub, cred)
		}
	}

	for _, sr := range perSub {
		result.Copied = append(result.Copied, sr.copied...)
		result.Outcomes = append(result.Outcomes, sr.outcomes...)
	}

	r.tel.ReportCount(report_replicate_copied, int64(len(result.Copied)))
	r.tel.ReportCount(report_replicate_failed, int64(len(result.Failures())))

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

type subResult struct {
	copied   []lots.Listing
	outcomes []Outcome
}

func (s *subResult) fail(sub lots.SubcategoryID, listingID int64, stage Stage, err error) {
	s.outcomes = append(s.outcomes, Outcome{
		Subcategory:     sub,
		SourceListingID: listingID,
		Stage:           stage,
		Err:             err,
	})
}

// processSubcategory never fails past its boundary, everything that goes
// wrong inside it becomes an outcome.
func (r Replicator) processSubcategory(ctx context.Context, userID int64, sub lots.SubcategoryID, cred lots.Credential) subResult {
	var out subResult
	if ctx.Err() != nil {
		return out
	}

	listings, err := r.fetcher.FetchByUser(ctx, userID, sub)
	if err != nil {
		if ctx.Err() != nil {
			return out
		}
		r.tel.ReportWarning(report_replicate_fetch, sub, err)
		out.fail(sub, 0, StageFetch, err)
		return out
	}
	if len(listings) == 0 {
		return out
	}

	listings, detailFailures := r.fetcher.Enrich(ctx, listings)
	if r.fetcher.Policy() == fetcher.DetailRequired {
		for _, failure := range detailFailures {
			out.fail(sub, failure.ListingID, StageDetail, failure.Err)
		}
	}

	for _, listing := range listings {
		if ctx.Err() != nil {
			return out
		}
		created, stage, err := r.copyListing(ctx, listing, sub, cred)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return out
			}
			r.tel.ReportWarning(report_replicate_listing, sub, listing.ID, stage, err)
			out.fail(sub, listing.ID, stage, err)
			continue
		}
		out.copied = append(out.copied, created)
		out.outcomes = append(out.outcomes, Outcome{
			Subcategory:     sub,
			SourceListingID: listing.ID,
			Stage:           StageSubmit,
			Created:         &created,
		})
	}
	return out
}

func (r Replicator) copyListing(ctx context.Context, listing lots.Listing, sub lots.SubcategoryID, cred lots.Credential) (lots.Listing, Stage, error) {
	tpl, err := r.acquirer.Acquire(ctx, sub)
	if err != nil {
		return lots.Listing{}, StageTemplate, err
	}
	payload, err := mapper.Apply(tpl, listing, cred, sub)
	if err != nil {
		return lots.Listing{}, StageMap, err
	}
	created, err := r.submitter.Submit(ctx, payload)
	if err != nil {
		return lots.Listing{}, StageSubmit, fmt.Errorf("copy listing %d: %w", listing.ID, err)
	}
	return created, StageSubmit, nil
}
