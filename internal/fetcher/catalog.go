package fetcher

import (
	"context"
	"fmt"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/lots"
)

type SubcategoryResolver interface {
	Resolve(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error)
}

// SubcategoryFailure is a subcategory whose lots could not be read, its
// lots are missing from UserLots.Listings.
type SubcategoryFailure struct {
	Subcategory lots.SubcategoryID
	Err         error
}

type UserLots struct {
	// Subcategories are the ones that were visited, in resolve order.
	Subcategories []lots.SubcategoryID
	Listings      []lots.Listing
	Failures      []SubcategoryFailure
}

// Catalog reads lots without copying them, across subcategories when asked
// to.
type Catalog struct {
	fetcher  Fetcher
	resolver SubcategoryResolver
	tel      telemetry.API
}

func NewCatalog(fetcher Fetcher, resolver SubcategoryResolver, tel telemetry.API) Catalog {
	assert.NotNil(resolver)
	assert.NotNil(tel)
	return Catalog{
		fetcher:  fetcher,
		resolver: resolver,
		tel:      telemetry.NewScopedAPI("fetcher", tel),
	}
}

// FetchAllByUser lists the user's lots in `sub`, or in every subcategory the
// user sells in when `sub` is not explicit. A subcategory that fails is
// recorded and skipped. The error is either the resolve error or the
// context's error, in the second case the result holds what was read before.
func (c Catalog) FetchAllByUser(ctx context.Context, userID int64, sub lots.SubcategoryID) (UserLots, error) {
	var result UserLots

	subs, err := c.resolver.Resolve(ctx, userID, sub)
	if err != nil {
		c.tel.ReportWarning(report_fetch_all, userID, err)
		return result, fmt.Errorf("resolve subcategories of %d: %w", userID, err)
	}

	for _, current := range subs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Subcategories = append(result.Subcategories, current)

		listings, err := c.fetcher.FetchByUser(ctx, userID, current)
		if err != nil {
			result.Failures = append(result.Failures, SubcategoryFailure{Subcategory: current, Err: err})
			continue
		}
		result.Listings = append(result.Listings, listings...)
	}

	c.tel.ReportDebug(report_fetch_all, userID, len(result.Subcategories), len(result.Listings), len(result.Failures))
	return result, nil
}

func (c Catalog) FetchBySubcategory(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error) {
	return c.fetcher.FetchBySubcategory(ctx, sub)
}

// Enrich applies the fetcher's detail policy.
func (c Catalog) Enrich(ctx context.Context, listings []lots.Listing) ([]lots.Listing, []DetailFailure) {
	return c.fetcher.Enrich(ctx, listings)
}
