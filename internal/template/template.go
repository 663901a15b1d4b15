// Package template acquires the submission template for a subcategory, the
// ordered set of fields a new listing in it must be submitted with.
package template

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/lib/ordered"
)

const (
	report_acquire_structured = "acquire.structured"
	report_acquire_form       = "acquire.form"
	report_acquire_fallback   = "acquire.fallback"
)

type Kind int

const (
	KindStructured Kind = iota
	KindForm
)

func (k Kind) String() string {
	if k == KindForm {
		return "form"
	}
	return "structured"
}

type Template struct {
	Fields      ordered.Map
	Kind        Kind
	Layout      Layout
	Subcategory lots.SubcategoryID
}

// ErrInaccessibleSubcategory means the account may not list in the
// subcategory. Listings hitting it are skipped.
var ErrInaccessibleSubcategory = errors.New("subcategory is invalid or inaccessible")

type Acquirer interface {
	Acquire(ctx context.Context, sub lots.SubcategoryID) (Template, error)
}

func classify(sub lots.SubcategoryID, err error) error {
	if gateway.IsStatus(err, http.StatusUnprocessableEntity) {
		return fmt.Errorf("acquire template for %s: %w: %w", sub, ErrInaccessibleSubcategory, err)
	}
	return fmt.Errorf("acquire template for %s: %w", sub, err)
}

// templateScalar converts JSON values with form semantics: true is "on",
// false is left out and null is "".
func templateScalar(raw json.RawMessage) (string, bool, error) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return "on", true, nil
	case "false":
		return "", false, nil
	}
	return ordered.StringifyScalar(raw)
}

// StructuredAcquirer reads the gateway's JSON lot-fields route.
type StructuredAcquirer struct {
	client *gateway.Client
	tel    telemetry.API
}

func NewStructuredAcquirer(client *gateway.Client, tel telemetry.API) StructuredAcquirer {
	assert.NotNil(client)
	assert.NotNil(tel)
	return StructuredAcquirer{
		client: client,
		tel:    telemetry.NewScopedAPI("template", tel),
	}
}

func (a StructuredAcquirer) Acquire(ctx context.Context, sub lots.SubcategoryID) (Template, error) {
	path := gateway.Expand(a.client.Routes().LotFields, map[string]string{
		"subcategoryId": sub.String(),
	})
	res, err := a.client.Get(ctx, path, nil)
	if err != nil {
		a.tel.ReportWarning(report_acquire_structured, sub, err)
		return Template{}, classify(sub, err)
	}

	// some gateway builds answer with the raw edit form
	if res.IsHTML() {
		fields, err := ParseForm(bytes.NewReader(res.Body))
		if err != nil {
			a.tel.ReportBroken(report_acquire_structured, sub, err)
			return Template{}, classify(sub, err)
		}
		return Template{Fields: fields, Kind: KindForm, Layout: FormLayout, Subcategory: sub}, nil
	}

	fields, err := ordered.DecodeJSON(res.Body, templateScalar)
	if err != nil {
		a.tel.ReportBroken(report_acquire_structured, sub, err)
		return Template{}, classify(sub, err)
	}
	return Template{Fields: fields, Kind: KindStructured, Layout: StructuredLayout, Subcategory: sub}, nil
}

// FormAcquirer scrapes the marketplace's new offer form.
type FormAcquirer struct {
	client *gateway.Client
	tel    telemetry.API
}

func NewFormAcquirer(client *gateway.Client, tel telemetry.API) FormAcquirer {
	assert.NotNil(client)
	assert.NotNil(tel)
	return FormAcquirer{
		client: client,
		tel:    telemetry.NewScopedAPI("template", tel),
	}
}

func (a FormAcquirer) Acquire(ctx context.Context, sub lots.SubcategoryID) (Template, error) {
	res, err := a.client.Get(ctx, a.client.Routes().OfferEdit, url.Values{
		"offer": {"0"},
		"node":  {sub.String()},
	})
	if err != nil {
		a.tel.ReportWarning(report_acquire_form, sub, err)
		return Template{}, classify(sub, err)
	}
	fields, err := ParseForm(bytes.NewReader(res.Body))
	if err != nil {
		a.tel.ReportBroken(report_acquire_form, sub, err)
		return Template{}, classify(sub, err)
	}
	if fields.Len() == 0 {
		err := fmt.Errorf("offer edit page has no form fields")
		a.tel.ReportBroken(report_acquire_form, sub, err)
		return Template{}, classify(sub, err)
	}
	return Template{Fields: fields, Kind: KindForm, Layout: FormLayout, Subcategory: sub}, nil
}

// FallbackAcquirer uses the structured route until the gateway shows it
// does not have one, then scrapes forms for the rest of its lifetime.
type FallbackAcquirer struct {
	structured Acquirer
	form       Acquirer
	useForm    *atomic.Bool
	tel        telemetry.API
}

func NewFallbackAcquirer(structured, form Acquirer, tel telemetry.API) FallbackAcquirer {
	assert.NotNil(structured)
	assert.NotNil(form)
	assert.NotNil(tel)
	return FallbackAcquirer{
		structured: structured,
		form:       form,
		useForm:    &atomic.Bool{},
		tel:        telemetry.NewScopedAPI("template", tel),
	}
}

func (a FallbackAcquirer) Acquire(ctx context.Context, sub lots.SubcategoryID) (Template, error) {
	if a.useForm.Load() {
		return a.form.Acquire(ctx, sub)
	}
	tpl, err := a.structured.Acquire(ctx, sub)
	if gateway.IsStatus(err, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented) {
		a.tel.ReportWarning(report_acquire_fallback, "structured route unavailable, scraping forms", err)
		a.useForm.Store(true)
		return a.form.Acquire(ctx, sub)
	}
	return tpl, err
}

// NewAcquirer builds the acquirer for a strategy name: "structured",
// "form" or "fallback" (the default).
func NewAcquirer(strategy string, client *gateway.Client, tel telemetry.API) (Acquirer, error) {
	switch strategy {
	case "structured":
		return NewStructuredAcquirer(client, tel), nil
	case "form":
		return NewFormAcquirer(client, tel), nil
	case "", "fallback":
		return NewFallbackAcquirer(
			NewStructuredAcquirer(client, tel),
			NewFormAcquirer(client, tel),
			tel,
		), nil
	}
	return nil, fmt.Errorf("unknown template strategy %q", strategy)
}
