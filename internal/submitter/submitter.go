// Package submitter creates listings from mapped payloads.
package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/mapper"
	"lotcopy-backend/internal/template"
)

const (
	report_submit        = "submit"
	report_submit_create = "submit.create"
)

// SubmitError means the gateway refused or garbled the creation, the
// listing is skipped.
type SubmitError struct {
	SourceID   int64
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmitError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit listing %d: status %d: %s", e.SourceID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("submit listing %d: %v", e.SourceID, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

type Submitter struct {
	client *gateway.Client
	tel    telemetry.API
}

func New(client *gateway.Client, tel telemetry.API) Submitter {
	assert.NotNil(client)
	assert.NotNil(tel)
	return Submitter{
		client: client,
		tel:    telemetry.NewScopedAPI("submitter", tel),
	}
}

// Submit creates one listing. Form payloads are sent url-encoded and
// structured ones as a JSON object, both in template field order.
func (s Submitter) Submit(ctx context.Context, payload mapper.Payload) (lots.Listing, error) {
	routes := s.client.Routes()

	var res *gateway.Response
	var err error
	if payload.Kind == template.KindForm {
		res, err = s.client.PostForm(ctx, routes.CreateLotFromFields, nil, payload.Fields)
	} else {
		res, err = s.client.PostJSON(ctx, routes.CreateLot, nil, payload.Fields)
	}
	if err != nil {
		s.tel.ReportWarning(report_submit, payload.SourceID, payload.Subcategory, err)
		var gerr *gateway.GatewayError
		if errors.As(err, &gerr) {
			return lots.Listing{}, &SubmitError{
				SourceID:   payload.SourceID,
				StatusCode: gerr.StatusCode,
				Body:       gerr.Body,
				Err:        err,
			}
		}
		return lots.Listing{}, &SubmitError{SourceID: payload.SourceID, Err: err}
	}

	created, err := decodeCreated(res.Body)
	if err != nil {
		s.tel.ReportBroken(report_submit, payload.SourceID, err)
		return lots.Listing{}, &SubmitError{
			SourceID:   payload.SourceID,
			StatusCode: res.StatusCode,
			Body:       string(res.Body),
			Err:        err,
		}
	}
	if !created.SubcategoryID.Explicit() {
		created.SubcategoryID = payload.Subcategory
	}

	s.tel.ReportDebug(report_submit_create, payload.SourceID, created.ID, payload.Subcategory)
	return created, nil
}

func decodeCreated(body []byte) (lots.Listing, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return lots.Listing{}, fmt.Errorf("created listing is not a json object")
	}
	var created lots.Listing
	err := json.Unmarshal(body, &created)
	if err != nil {
		return lots.Listing{}, fmt.Errorf("decode created listing: %w", err)
	}
	return created, nil
}
