// Package credential acquires the session-scoped CSRF credential required by
// mutating gateway calls.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_endpoint_authenticate = "endpoint.authenticate"
	report_form_authenticate     = "form.authenticate"
)

type Provider interface {
	Authenticate(ctx context.Context) (lots.Credential, error)
}

type ProviderFunc func(ctx context.Context) (lots.Credential, error)

func (f ProviderFunc) Authenticate(ctx context.Context) (lots.Credential, error) {
	return f(ctx)
}

// AuthError means no credential could be obtained, it aborts the whole batch.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authenticate: %s", e.Reason)
	}
	return fmt.Sprintf("authenticate: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// EndpointProvider asks the gateway's auth route for a credential.
type EndpointProvider struct {
	client *gateway.Client
	tel    telemetry.API
}

func NewEndpointProvider(client *gateway.Client, tel telemetry.API) EndpointProvider {
	assert.NotNil(client)
	assert.NotNil(tel)
	return EndpointProvider{
		client: client,
		tel:    telemetry.NewScopedAPI("credential", tel),
	}
}

type authRequest struct {
	GoldenKey string `json:"golden_key"`
	UserAgent string `json:"user_agent"`
}

type authResponse struct {
	Username  string          `json:"username"`
	ID        json.RawMessage `json:"id"`
	CSRFToken string          `json:"csrfToken"`
	// older gateway builds spell it in lower case
	CSRFTokenLower string `json:"csrftoken"`
	Session        string `json:"session"`
}

func (p EndpointProvider) Authenticate(ctx context.Context) (lots.Credential, error) {
	res, err := p.client.PostJSON(ctx, p.client.Routes().Auth, nil, authRequest{
		GoldenKey: p.client.GoldenKey(),
		UserAgent: p.client.UserAgent(),
	})
	if err != nil {
		p.tel.ReportBroken(report_endpoint_authenticate, err)
		return lots.Credential{}, &AuthError{Reason: "auth request", Err: err}
	}

	var body authResponse
	err = res.DecodeJSON(&body)
	if err != nil {
		p.tel.ReportBroken(report_endpoint_authenticate, err)
		return lots.Credential{}, &AuthError{Reason: "auth response", Err: err}
	}

	token := body.CSRFToken
	if token == "" {
		token = body.CSRFTokenLower
	}
	if token == "" {
		err := &AuthError{Reason: "auth response has no csrf token"}
		p.tel.ReportBroken(report_endpoint_authenticate, err)
		return lots.Credential{}, err
	}

	userID, err := parseUserID(body.ID)
	if err != nil {
		p.tel.ReportWarning(report_endpoint_authenticate, err)
	}

	session := body.Session
	if session == "" {
		session, _ = res.Cookie("PHPSESSID")
	}

	return lots.Credential{
		Username:  body.Username,
		UserID:    userID,
		CSRFToken: token,
		Session:   session,
	}, nil
}

// parseUserID accepts the id as a number or a numeric string.
func parseUserID(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return 0, nil
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", text, err)
	}
	return id, nil
}

// FormProvider scrapes the token out of an authenticated marketplace page,
// for gateways that have no auth route.
type FormProvider struct {
	client *gateway.Client
	path   string
	query  url.Values
	tel    telemetry.API
}

// NewFormProvider fetches `path` (the offer edit route when empty) to read
// the token. `probe` is the subcategory used for the default page.
func NewFormProvider(client *gateway.Client, path string, probe lots.SubcategoryID, tel telemetry.API) FormProvider {
	assert.NotNil(client)
	assert.NotNil(tel)

	var query url.Values
	if path == "" {
		path = client.Routes().OfferEdit
		query = url.Values{"offer": {"0"}}
		if probe.Explicit() {
			query.Set("node", probe.String())
		}
	}
	return FormProvider{
		client: client,
		path:   path,
		query:  query,
		tel:    telemetry.NewScopedAPI("credential", tel),
	}
}

type appData struct {
	CSRFToken string          `json:"csrf-token"`
	UserID    json.RawMessage `json:"userId"`
}

func (p FormProvider) Authenticate(ctx context.Context) (lots.Credential, error) {
	res, err := p.client.Get(ctx, p.path, p.query)
	if err != nil {
		p.tel.ReportBroken(report_form_authenticate, err)
		return lots.Credential{}, &AuthError{Reason: "session page request", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body))
	if err != nil {
		p.tel.ReportBroken(report_form_authenticate, err)
		return lots.Credential{}, &AuthError{Reason: "parse session page", Err: err}
	}

	cred := lots.Credential{}
	cred.Session, _ = res.Cookie("PHPSESSID")
	cred.CSRFToken = strings.TrimSpace(doc.Find("input[name=csrf_token]").First().AttrOr("value", ""))

	raw := doc.Find("body").AttrOr("data-app-data", "")
	if raw != "" {
		var data appData
		err := json.Unmarshal([]byte(raw), &data)
		if err != nil {
			p.tel.ReportWarning(report_form_authenticate, fmt.Errorf("parse data-app-data: %w", err))
		} else {
			if cred.CSRFToken == "" {
				cred.CSRFToken = data.CSRFToken
			}
			cred.UserID, err = parseUserID(data.UserID)
			if err != nil {
				p.tel.ReportWarning(report_form_authenticate, err)
			}
		}
	}

	if cred.CSRFToken == "" {
		err := &AuthError{Reason: "could not find csrf token on session page"}
		p.tel.ReportBroken(report_form_authenticate, err)
		return lots.Credential{}, err
	}
	cred.Username = strings.TrimSpace(doc.Find(".user-link-name").First().Text())
	return cred, nil
}
