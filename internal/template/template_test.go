package template

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway/gatewaytest"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/lib/ordered"

	"github.com/stretchr/testify/require"
)

func TestStructuredAcquire(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /lot-fields/new/{sub}", 200, `{
		"price": 0,
		"short_description": "",
		"auto_delivery": false,
		"active": true,
		"param_0": null,
		"node_id": "10"
	}`)

	acquirer := NewStructuredAcquirer(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	tpl, err := acquirer.Acquire(context.Background(), 10)
	require.NoError(t, err)

	require.Equal(t, KindStructured, tpl.Kind)
	require.Equal(t, StructuredLayout, tpl.Layout)
	require.Equal(t, []ordered.Pair{
		{Key: "price", Value: "0"},
		{Key: "short_description", Value: ""},
		{Key: "active", Value: "on"},
		{Key: "param_0", Value: ""},
		{Key: "node_id", Value: "10"},
	}, tpl.Fields.Pairs())
	require.Equal(t, "/lot-fields/new/10", srv.Requests("/lot-fields")[0].Path)
}

func TestStructuredAcquireHTMLBody(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleHTML("GET /lot-fields/new/{sub}", 200, `<form><input name="price" value="1"></form>`)

	acquirer := NewStructuredAcquirer(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	tpl, err := acquirer.Acquire(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, KindForm, tpl.Kind)
	require.Equal(t, "1", tpl.Fields.Value("price"))
}

func TestFormAcquire(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleHTML("GET /lots/offerEdit", 200, offerEditForm)

	acquirer := NewFormAcquirer(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	tpl, err := acquirer.Acquire(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, KindForm, tpl.Kind)
	require.Equal(t, FormLayout, tpl.Layout)
	require.Equal(t, "eu", tpl.Fields.Value("param_0"))

	query := srv.Requests("/lots/offerEdit")[0].Query
	require.Equal(t, "0", query.Get("offer"))
	require.Equal(t, "10", query.Get("node"))
}

func TestInaccessibleSubcategory(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /lot-fields/new/{sub}", http.StatusUnprocessableEntity, `{"detail": "no access"}`)
	srv.HandleHTML("GET /lots/offerEdit", http.StatusUnprocessableEntity, `denied`)

	client := srv.Client(t, telemetry.NewRecorder())
	for _, acquirer := range []Acquirer{
		NewStructuredAcquirer(client, telemetry.NewRecorder()),
		NewFormAcquirer(client, telemetry.NewRecorder()),
	} {
		_, err := acquirer.Acquire(context.Background(), 10)
		require.True(t, errors.Is(err, ErrInaccessibleSubcategory), err)
	}
}

func TestFallbackSwitchesToForm(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleHTML("GET /lots/offerEdit", 200, offerEditForm)

	tel := telemetry.NewRecorder()
	acquirer, err := NewAcquirer("fallback", srv.Client(t, telemetry.NewRecorder()), tel)
	require.NoError(t, err)

	for _, sub := range []int64{10, 20} {
		tpl, err := acquirer.Acquire(context.Background(), lots.SubcategoryID(sub))
		require.NoError(t, err)
		require.Equal(t, KindForm, tpl.Kind)
		require.Equal(t, lots.SubcategoryID(sub), tpl.Subcategory)
	}

	// the structured route is only tried once
	require.Len(t, srv.Requests("/lot-fields"), 1)
	require.Len(t, srv.Requests("/lots/offerEdit"), 2)
	require.Len(t, tel.Find("warning", report_acquire_fallback), 1)
}

func TestFallbackKeepsOtherErrors(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("GET /lot-fields/new/{sub}", http.StatusInternalServerError, `{}`)

	acquirer, err := NewAcquirer("", srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	require.NoError(t, err)
	_, err = acquirer.Acquire(context.Background(), 10)
	require.Error(t, err)
	require.Empty(t, srv.Requests("/lots/offerEdit"))
}

func TestUnknownStrategy(t *testing.T) {
	srv := gatewaytest.New(t)
	_, err := NewAcquirer("psychic", srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	require.Error(t, err)
}
