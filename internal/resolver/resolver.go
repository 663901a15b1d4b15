// Package resolver turns a replication request into the list of
// subcategories to process.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"
)

const (
	report_resolve_enumerate = "resolve.enumerate"
	report_resolve_count     = "resolve.count"
)

type Resolver struct {
	client *gateway.Client
	tel    telemetry.API
}

func New(client *gateway.Client, tel telemetry.API) Resolver {
	assert.NotNil(client)
	assert.NotNil(tel)
	return Resolver{
		client: client,
		tel:    telemetry.NewScopedAPI("resolver", tel),
	}
}

// Resolve returns [explicit] when it names a subcategory, otherwise every
// subcategory the user has lots in, deduplicated in first-seen order. An
// empty result is not an error.
func (r Resolver) Resolve(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error) {
	if explicit.Explicit() {
		return []lots.SubcategoryID{explicit}, nil
	}

	found, err := r.Enumerate(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := Dedup(found)
	r.tel.ReportCount(report_resolve_count, int64(len(out)))
	return out, nil
}

// Enumerate lists the user's subcategories as the gateway reports them.
func (r Resolver) Enumerate(ctx context.Context, userID int64) ([]lots.SubcategoryID, error) {
	path := gateway.Expand(r.client.Routes().UserSubcategories, map[string]string{
		"userId": strconv.FormatInt(userID, 10),
	})
	res, err := r.client.Get(ctx, path, nil)
	if err != nil {
		r.tel.ReportWarning(report_resolve_enumerate, userID, err)
		return nil, fmt.Errorf("enumerate subcategories of %d: %w", userID, err)
	}
	ids, err := decodeSubcategories(res.Body)
	if err != nil {
		r.tel.ReportWarning(report_resolve_enumerate, userID, err)
		return nil, fmt.Errorf("enumerate subcategories of %d: %w", userID, err)
	}
	return ids, nil
}

// decodeSubcategories accepts either a bare array or an object with a
// "subcategories" array.
func decodeSubcategories(body []byte) ([]lots.SubcategoryID, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if body[0] == '[' {
		var ids []lots.SubcategoryID
		err := json.Unmarshal(body, &ids)
		return ids, err
	}
	var wrapped struct {
		Subcategories []lots.SubcategoryID `json:"subcategories"`
	}
	err := json.Unmarshal(body, &wrapped)
	return wrapped.Subcategories, err
}

// Dedup drops repeated and non-explicit ids keeping first-seen order.
func Dedup(ids []lots.SubcategoryID) []lots.SubcategoryID {
	seen := make(map[lots.SubcategoryID]struct{}, len(ids))
	out := make([]lots.SubcategoryID, 0, len(ids))
	for _, id := range ids {
		if !id.Explicit() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
