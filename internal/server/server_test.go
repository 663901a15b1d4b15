package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/credential"
	"lotcopy-backend/internal/fetcher"
	"lotcopy-backend/internal/journal"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"

	"github.com/stretchr/testify/require"
)

type replicateFunc func(ctx context.Context, req replicator.Request) (replicator.BatchResult, error)

func (f replicateFunc) Replicate(ctx context.Context, req replicator.Request) (replicator.BatchResult, error) {
	return f(ctx, req)
}

type resolveFunc func(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error)

func (f resolveFunc) Resolve(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error) {
	return f(ctx, userID, explicit)
}

type historyFunc func(ctx context.Context, limit int) ([]journal.Run, error)

func (f historyFunc) Runs(ctx context.Context, limit int) ([]journal.Run, error) {
	return f(ctx, limit)
}

var noReplicate = replicateFunc(func(ctx context.Context, req replicator.Request) (replicator.BatchResult, error) {
	return replicator.BatchResult{}, nil
})

var noResolve = resolveFunc(func(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error) {
	return nil, nil
})

type catalogStub struct {
	allByUser     func(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error)
	bySubcategory func(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error)
}

func (c catalogStub) FetchAllByUser(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error) {
	return c.allByUser(ctx, userID, sub)
}

func (c catalogStub) FetchBySubcategory(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error) {
	return c.bySubcategory(ctx, sub)
}

var noCatalog = catalogStub{
	allByUser: func(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error) {
		return fetcher.UserLots{}, nil
	},
	bySubcategory: func(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error) {
		return nil, nil
	},
}

func do(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestCopyLots(t *testing.T) {
	var got replicator.Request
	rep := replicateFunc(func(ctx context.Context, req replicator.Request) (replicator.BatchResult, error) {
		got = req
		return replicator.BatchResult{
			RunID:         "run",
			Subcategories: []lots.SubcategoryID{10, 20},
			Copied:        []lots.Listing{{ID: 900, SubcategoryID: 10}},
			Outcomes: []replicator.Outcome{
				{Subcategory: 20, Stage: replicator.StageFetch, Err: errors.New("boom")},
			},
		}, nil
	})
	handler := New(rep, noResolve, noCatalog, nil, telemetry.NewRecorder()).Handler()

	rec, body := do(t, handler, http.MethodPost, "/copy-lots", `{"user_id": 123, "subcategory_id": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, replicator.Request{UserID: 123, Subcategory: lots.AllSubcategories}, got)

	require.Equal(t, float64(1), body["total"])
	require.Equal(t, false, body["nothing_copied"])
	copied := body["copied_lots"].([]any)
	require.Equal(t, float64(900), copied[0].(map[string]any)["Id"])
	failures := body["failures"].([]any)
	require.Equal(t, "fetch", failures[0].(map[string]any)["stage"])
}

func TestCopyLotsSubcategoryForms(t *testing.T) {
	var got replicator.Request
	rep := replicateFunc(func(ctx context.Context, req replicator.Request) (replicator.BatchResult, error) {
		got = req
		return replicator.BatchResult{}, nil
	})
	handler := New(rep, noResolve, noCatalog, nil, telemetry.NewRecorder()).Handler()

	table := []struct {
		body     string
		expected lots.SubcategoryID
	}{
		{body: `{"user_id": 1, "subcategory_id": 10}`, expected: 10},
		{body: `{"user_id": 1, "subcategory_id": "all"}`, expected: lots.AllSubcategories},
		{body: `{"user_id": 1}`, expected: lots.AllSubcategories},
	}
	for _, test := range table {
		rec, body := do(t, handler, http.MethodPost, "/copy-lots", test.body)
		require.Equal(t, http.StatusOK, rec.Code, test.body)
		require.Equal(t, test.expected, got.Subcategory, test.body)
		require.Equal(t, true, body["nothing_copied"])
		require.Equal(t, []any{}, body["copied_lots"])
	}
}

func TestCopyLotsErrors(t *testing.T) {
	authFails := replicateFunc(func(ctx context.Context, req replicator.Request) (replicator.BatchResult, error) {
		return replicator.BatchResult{}, &credential.AuthError{Reason: "bad golden key"}
	})
	handler := New(authFails, noResolve, noCatalog, nil, telemetry.NewRecorder()).Handler()

	rec, _ := do(t, handler, http.MethodPost, "/copy-lots", `{"user_id": 1}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = do(t, handler, http.MethodPost, "/copy-lots", `{"user_id": 0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, handler, http.MethodPost, "/copy-lots", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserSubcategories(t *testing.T) {
	resolve := resolveFunc(func(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error) {
		require.False(t, explicit.Explicit())
		return []lots.SubcategoryID{10, 20}, nil
	})
	handler := New(noReplicate, resolve, noCatalog, nil, telemetry.NewRecorder()).Handler()

	rec, body := do(t, handler, http.MethodGet, "/user-subcategories/123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(123), body["user_id"])
	require.Equal(t, []any{float64(10), float64(20)}, body["subcategories"])

	rec, _ = do(t, handler, http.MethodGet, "/user-subcategories/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := historyFunc(func(ctx context.Context, limit int) ([]journal.Run, error) {
		require.Equal(t, 5, limit)
		return []journal.Run{{ID: "run", UserID: 123, StartedAt: started, FinishedAt: started, Copied: 2}}, nil
	})
	handler := New(noReplicate, noResolve, noCatalog, history, telemetry.NewRecorder()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "2024-05-01T12:00:00.000Z", runs[0]["started_at"])

	withoutJournal := New(noReplicate, noResolve, noCatalog, nil, telemetry.NewRecorder()).Handler()
	rec, _ = do(t, withoutJournal, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLotsByUser(t *testing.T) {
	var got []lots.SubcategoryID
	catalog := noCatalog
	catalog.allByUser = func(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error) {
		require.Equal(t, int64(123), userID)
		got = append(got, sub)
		return fetcher.UserLots{
			Subcategories: []lots.SubcategoryID{10, 20},
			Listings:      []lots.Listing{{ID: 1, SubcategoryID: 10}},
			Failures:      []fetcher.SubcategoryFailure{{Subcategory: 20, Err: errors.New("boom")}},
		}, nil
	}
	handler := New(noReplicate, noResolve, catalog, nil, telemetry.NewRecorder()).Handler()

	rec, body := do(t, handler, http.MethodGet, "/lots-by-user/123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), body["total"])
	require.Equal(t, []any{float64(10), float64(20)}, body["subcategories"])
	failures := body["failures"].([]any)
	require.Equal(t, float64(20), failures[0].(map[string]any)["subcategory_id"])

	rec, _ = do(t, handler, http.MethodGet, "/lots-by-user/123?subcategory_id=all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, handler, http.MethodGet, "/lots-by-user/123?subcategory_id=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, handler, http.MethodPost, "/get-lots-by-userid", `{"user_id": 123, "subcategory_id": -1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []lots.SubcategoryID{lots.AllSubcategories, lots.AllSubcategories, 30, lots.AllSubcategories}, got)

	rec, _ = do(t, handler, http.MethodGet, "/lots-by-user/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, handler, http.MethodGet, "/lots-by-user/123?subcategory_id=ten", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, handler, http.MethodPost, "/get-lots-by-userid", `{"subcategory_id": 10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLotsByUserResolveFailure(t *testing.T) {
	catalog := noCatalog
	catalog.allByUser = func(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error) {
		return fetcher.UserLots{}, errors.New("gateway down")
	}
	handler := New(noReplicate, noResolve, catalog, nil, telemetry.NewRecorder()).Handler()

	rec, body := do(t, handler, http.MethodGet, "/lots-by-user/123", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "gateway down", body["error"])
}

func TestPublicLots(t *testing.T) {
	catalog := noCatalog
	catalog.bySubcategory = func(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error) {
		require.Equal(t, lots.SubcategoryID(10), sub)
		return []lots.Listing{{ID: 5, SellerUsername: "other"}}, nil
	}
	handler := New(noReplicate, noResolve, catalog, nil, telemetry.NewRecorder()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/lots/10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listings []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listings))
	require.Len(t, listings, 1)
	require.Equal(t, "other", listings[0]["SellerUsername"])

	rec, _ = do(t, handler, http.MethodGet, "/lots/all", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
