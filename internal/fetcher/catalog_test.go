package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway/gatewaytest"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/resolver"

	"github.com/stretchr/testify/require"
)

func catalogServer(t *testing.T) *gatewaytest.Server {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /user-subcategories/{user}", 200, `[10, 20, 30]`)
	srv.Mux.HandleFunc("GET /lots-by-user/{sub}/{user}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("sub") {
		case "10":
			gatewaytest.WriteJSON(w, 200, `[{"Id": 1, "Title": "Gold", "Price": 5.00}]`)
		case "20":
			gatewaytest.WriteJSON(w, http.StatusInternalServerError, `{"detail": "boom"}`)
		case "30":
			gatewaytest.WriteJSON(w, 200, `[{"Id": 3, "Title": "Boost", "Price": 7}, {"Id": 4, "Title": "Coins", "Price": 1}]`)
		default:
			gatewaytest.WriteJSON(w, http.StatusBadRequest, `{"detail": "unknown subcategory"}`)
		}
	})
	return srv
}

func newCatalog(t *testing.T, srv *gatewaytest.Server) Catalog {
	tel := telemetry.NewRecorder()
	client := srv.Client(t, tel)
	return NewCatalog(New(client, DetailNone, tel), resolver.New(client, tel), tel)
}

func TestFetchAllByUserWalksSubcategories(t *testing.T) {
	srv := catalogServer(t)
	catalog := newCatalog(t, srv)

	all, err := lots.ParseSubcategory("all")
	require.NoError(t, err)
	result, err := catalog.FetchAllByUser(context.Background(), 123, all)
	require.NoError(t, err)

	require.Len(t, srv.Requests("/user-subcategories"), 1)
	require.Equal(t, []lots.SubcategoryID{10, 20, 30}, result.Subcategories)

	var ids []int64
	for _, listing := range result.Listings {
		ids = append(ids, listing.ID)
		require.True(t, listing.SubcategoryID.Explicit())
	}
	require.Equal(t, []int64{1, 3, 4}, ids)
	require.Equal(t, lots.SubcategoryID(10), result.Listings[0].SubcategoryID)
	require.Equal(t, lots.SubcategoryID(30), result.Listings[2].SubcategoryID)

	require.Len(t, result.Failures, 1)
	require.Equal(t, lots.SubcategoryID(20), result.Failures[0].Subcategory)

	for _, req := range srv.Requests("/lots-by-user") {
		require.NotContains(t, req.Path, "all")
	}
}

func TestFetchAllByUserExplicit(t *testing.T) {
	srv := catalogServer(t)
	catalog := newCatalog(t, srv)

	result, err := catalog.FetchAllByUser(context.Background(), 123, 30)
	require.NoError(t, err)
	require.Empty(t, srv.Requests("/user-subcategories"))
	require.Equal(t, []lots.SubcategoryID{30}, result.Subcategories)
	require.Len(t, result.Listings, 2)
	require.Empty(t, result.Failures)
}

func TestFetchAllByUserResolveFailure(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /user-subcategories/{user}", http.StatusBadGateway, `{"detail": "down"}`)
	catalog := newCatalog(t, srv)

	_, err := catalog.FetchAllByUser(context.Background(), 123, lots.AllSubcategories)
	require.Error(t, err)
	require.Empty(t, srv.Requests("/lots-by-user"))
}

func TestFetchAllByUserCancelled(t *testing.T) {
	srv := catalogServer(t)
	catalog := newCatalog(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := catalog.FetchAllByUser(ctx, 123, 10)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, srv.Requests("/lots-by-user"))
}

func TestFetchByUserRequiresSubcategory(t *testing.T) {
	srv := gatewaytest.New(t)
	fetcher := New(srv.Client(t, telemetry.NewRecorder()), DetailNone, telemetry.NewRecorder())

	for _, sub := range []lots.SubcategoryID{lots.AllSubcategories, 0} {
		_, err := fetcher.FetchByUser(context.Background(), 123, sub)
		require.True(t, errors.Is(err, ErrNoSubcategory), sub.String())
		_, err = fetcher.FetchBySubcategory(context.Background(), sub)
		require.True(t, errors.Is(err, ErrNoSubcategory), sub.String())
	}
	require.Empty(t, srv.Requests("/"))
}

func TestFetchBySubcategory(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /lots/{sub}", 200, `[
		{"id": 5, "price": 12.5, "description": "Gold", "seller_id": 77, "seller_username": "other"}
	]`)
	fetcher := New(srv.Client(t, telemetry.NewRecorder()), DetailNone, telemetry.NewRecorder())

	listings, err := fetcher.FetchBySubcategory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, int64(5), listings[0].ID)
	require.Equal(t, "12.5", listings[0].Price.Format())
	require.Equal(t, int64(77), listings[0].SellerID)
	require.Equal(t, "other", listings[0].SellerUsername)
	require.Equal(t, lots.SubcategoryID(10), listings[0].SubcategoryID)
	require.Equal(t, "/lots/10", srv.Requests("/lots/")[0].Path)
}
