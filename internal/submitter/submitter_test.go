package submitter

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway/gatewaytest"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/mapper"
	"lotcopy-backend/internal/template"
	"lotcopy-backend/lib/ordered"

	"github.com/stretchr/testify/require"
)

func payload(kind template.Kind) mapper.Payload {
	return mapper.Payload{
		Fields: ordered.FromPairs(
			ordered.Pair{Key: "csrf_token", Value: "tok"},
			ordered.Pair{Key: "node_id", Value: "10"},
			ordered.Pair{Key: "price", Value: "5"},
		),
		Kind:        kind,
		Subcategory: 10,
		SourceID:    7,
	}
}

func TestSubmitForm(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("POST /create-lot-from-fields", 200, `{"Id": 900, "Price": 5, "SubcategoryId": 0}`)

	submitter := New(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	created, err := submitter.Submit(context.Background(), payload(template.KindForm))
	require.NoError(t, err)
	require.Equal(t, int64(900), created.ID)
	require.Equal(t, lots.SubcategoryID(10), created.SubcategoryID)

	req := srv.Requests("/create-lot-from-fields")[0]
	require.Equal(t, "csrf_token=tok&node_id=10&price=5", req.Body)
	for _, req := range srv.Requests("/create-lot") {
		require.Equal(t, "/create-lot-from-fields", req.Path)
	}
}

func TestSubmitStructured(t *testing.T) {
	srv := gatewaytest.New(t)
	srv.HandleJSON("POST /create-lot", 200, `{"id": 901, "price": 5, "description": "Gold"}`)

	submitter := New(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
	created, err := submitter.Submit(context.Background(), payload(template.KindStructured))
	require.NoError(t, err)
	require.Equal(t, int64(901), created.ID)
	require.Equal(t, "Gold", created.Description)

	require.Equal(t, `{"csrf_token":"tok","node_id":"10","price":"5"}`, srv.Requests("/create-lot")[0].Body)
}

func TestSubmitErrors(t *testing.T) {
	table := []struct {
		name   string
		status int
		body   string
	}{
		{name: "rejected", status: http.StatusBadRequest, body: `{"detail": "price too low"}`},
		{name: "not json", status: 200, body: `<html>ok</html>`},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			srv := gatewaytest.New(t)
			srv.HandleJSON("POST /create-lot", test.status, test.body)

			submitter := New(srv.Client(t, telemetry.NewRecorder()), telemetry.NewRecorder())
			_, err := submitter.Submit(context.Background(), payload(template.KindStructured))

			var submitErr *SubmitError
			require.True(t, errors.As(err, &submitErr), err)
			require.Equal(t, int64(7), submitErr.SourceID)
			require.Equal(t, test.status, submitErr.StatusCode)
		})
	}
}
