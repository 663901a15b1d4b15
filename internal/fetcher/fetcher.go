// Package fetcher reads a seller's listings, and optionally their details,
// through the gateway.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"
)

const (
	report_fetch_by_user = "fetch.by-user"
	report_fetch_public  = "fetch.public"
	report_fetch_all     = "fetch.all-by-user"
	report_fetch_detail  = "fetch.detail"
	report_fetch_count   = "fetch.count"
)

// DetailPolicy decides what happens to a listing whose detail lookup fails.
type DetailPolicy int

const (
	// DetailBestEffort keeps the listing without its detailed description.
	DetailBestEffort DetailPolicy = iota
	// DetailNone never asks for details.
	DetailNone
	// DetailRequired drops listings whose detail could not be read.
	DetailRequired
)

func ParseDetailPolicy(text string) (DetailPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "best-effort", "besteffort":
		return DetailBestEffort, nil
	case "none", "skip":
		return DetailNone, nil
	case "required":
		return DetailRequired, nil
	}
	return 0, fmt.Errorf("unknown detail policy %q", text)
}

func (p DetailPolicy) String() string {
	switch p {
	case DetailNone:
		return "none"
	case DetailRequired:
		return "required"
	}
	return "best-effort"
}

type Fetcher struct {
	client *gateway.Client
	policy DetailPolicy
	tel    telemetry.API
}

func New(client *gateway.Client, policy DetailPolicy, tel telemetry.API) Fetcher {
	assert.NotNil(client)
	assert.NotNil(tel)
	return Fetcher{
		client: client,
		policy: policy,
		tel:    telemetry.NewScopedAPI("fetcher", tel),
	}
}

func (f Fetcher) Policy() DetailPolicy {
	return f.policy
}

// isNoLots recognizes the gateway's "no lots" answer, a 404 or (on gateways
// that rewrap their own errors) a 400 saying so.
func isNoLots(err error) bool {
	if gateway.IsStatus(err, http.StatusNotFound) {
		return true
	}
	var gerr *gateway.GatewayError
	if errors.As(err, &gerr) && gerr.StatusCode == http.StatusBadRequest {
		return strings.Contains(strings.ToLower(gerr.Body), "no lots found")
	}
	return false
}

// ErrNoSubcategory is returned by the single-subcategory reads when given
// AllSubcategories, FetchAllByUser on Catalog handles that case.
var ErrNoSubcategory = errors.New("an explicit subcategory is required")

// FetchByUser lists the user's lots in one subcategory. "No lots" is an
// empty slice, not an error. Listings without a subcategory are stamped with
// `sub`.
func (f Fetcher) FetchByUser(ctx context.Context, userID int64, sub lots.SubcategoryID) ([]lots.Listing, error) {
	if !sub.Explicit() {
		return nil, fmt.Errorf("fetch lots of %d: %w", userID, ErrNoSubcategory)
	}
	path := gateway.Expand(f.client.Routes().LotsByUser, map[string]string{
		"subcategoryId": sub.String(),
		"userId":        strconv.FormatInt(userID, 10),
	})
	listings, err := f.fetchList(ctx, report_fetch_by_user, path, sub)
	if err != nil {
		return nil, fmt.Errorf("fetch lots of %d in %s: %w", userID, sub, err)
	}
	return listings, nil
}

// FetchBySubcategory lists every seller's public lots in a subcategory.
func (f Fetcher) FetchBySubcategory(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error) {
	if !sub.Explicit() {
		return nil, fmt.Errorf("fetch public lots: %w", ErrNoSubcategory)
	}
	path := gateway.Expand(f.client.Routes().Lots, map[string]string{
		"subcategoryId": sub.String(),
	})
	listings, err := f.fetchList(ctx, report_fetch_public, path, sub)
	if err != nil {
		return nil, fmt.Errorf("fetch public lots in %s: %w", sub, err)
	}
	return listings, nil
}

func (f Fetcher) fetchList(ctx context.Context, reportID, path string, sub lots.SubcategoryID) ([]lots.Listing, error) {
	res, err := f.client.Get(ctx, path, nil)
	if isNoLots(err) {
		f.tel.ReportDebug(reportID, "no lots", path)
		return nil, nil
	}
	if err != nil {
		f.tel.ReportWarning(reportID, path, err)
		return nil, err
	}

	body := bytes.TrimSpace(res.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	listings, err := decodeList(body)
	if err != nil {
		f.tel.ReportBroken(reportID, path, err)
		return nil, fmt.Errorf("decode lots: %w", err)
	}

	for i := range listings {
		if !listings[i].SubcategoryID.Explicit() {
			listings[i].SubcategoryID = sub
		}
	}
	f.tel.ReportCount(report_fetch_count, int64(len(listings)))
	return listings, nil
}

// decodeList reads a lot array. The public subcategory route reports the
// seller as seller_id and seller_username.
func decodeList(body []byte) ([]lots.Listing, error) {
	var listings []lots.Listing
	err := json.Unmarshal(body, &listings)
	if err != nil {
		return nil, err
	}
	var sellers []struct {
		ID       int64  `json:"seller_id"`
		Username string `json:"seller_username"`
	}
	err = json.Unmarshal(body, &sellers)
	if err != nil {
		return nil, err
	}
	for i, seller := range sellers {
		if listings[i].SellerID == 0 {
			listings[i].SellerID = seller.ID
		}
		if listings[i].SellerUsername == "" {
			listings[i].SellerUsername = seller.Username
		}
	}
	return listings, nil
}

// decodeDetail reads a detail body, some gateway builds name the long
// description FullDescription or full_description.
func decodeDetail(body []byte) (lots.Listing, error) {
	var listing lots.Listing
	err := json.Unmarshal(body, &listing)
	if err != nil {
		return lots.Listing{}, err
	}
	if listing.DetailedDescription != "" {
		return listing, nil
	}
	var extra struct {
		FullDescription      string `json:"FullDescription"`
		SnakeFullDescription string `json:"full_description"`
	}
	err = json.Unmarshal(body, &extra)
	if err != nil {
		return lots.Listing{}, err
	}
	listing.DetailedDescription = extra.FullDescription
	if listing.DetailedDescription == "" {
		listing.DetailedDescription = extra.SnakeFullDescription
	}
	return listing, nil
}

// FetchDetail reads one listing's detail page.
func (f Fetcher) FetchDetail(ctx context.Context, listingID int64) (lots.Listing, error) {
	path := gateway.Expand(f.client.Routes().LotDetails, map[string]string{
		"lotId": strconv.FormatInt(listingID, 10),
	})
	res, err := f.client.Get(ctx, path, nil)
	if err != nil {
		return lots.Listing{}, fmt.Errorf("fetch detail of %d: %w", listingID, err)
	}
	detail, err := decodeDetail(res.Body)
	if err != nil {
		return lots.Listing{}, fmt.Errorf("decode detail of %d: %w", listingID, err)
	}
	return detail, nil
}

type DetailFailure struct {
	ListingID int64
	Err       error
}

// Enrich backfills the detailed description (and an empty short
// description) of each listing according to the policy. Listings dropped by
// DetailRequired are reported in the failures only.
func (f Fetcher) Enrich(ctx context.Context, listings []lots.Listing) ([]lots.Listing, []DetailFailure) {
	if f.policy == DetailNone {
		return listings, nil
	}

	out := make([]lots.Listing, 0, len(listings))
	var failures []DetailFailure
	for _, listing := range listings {
		if ctx.Err() != nil {
			out = append(out, listing)
			continue
		}

		detail, err := f.FetchDetail(ctx, listing.ID)
		if err != nil {
			f.tel.ReportWarning(report_fetch_detail, listing.ID, err)
			failures = append(failures, DetailFailure{ListingID: listing.ID, Err: err})
			if f.policy == DetailRequired {
				continue
			}
			out = append(out, listing)
			continue
		}

		if detail.DetailedDescription != "" {
			listing.DetailedDescription = detail.DetailedDescription
		}
		if listing.Description == "" {
			listing.Description = detail.Description
		}
		out = append(out, listing)
	}
	return out, failures
}
