// Package gateway is the HTTP client for the intermediary gateway that fronts
// the marketplace. Every request carries the shared golden_key secret.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/lib/ordered"
	"lotcopy-backend/lib/restyutil"
	libtelemetry "lotcopy-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_gateway_status = "gateway.status"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 2
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	BaseUrl   string
	GoldenKey string
	UserAgent string
	// Timeout bounds every single call, zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond is the rate limit, zero means the default and a
	// negative value disables the limiter.
	RequestsPerSecond float64
	CloudflareBypass  bool
	Routes            Routes
	// DumpOutput receives a dump of every HTTP exchange when non-nil.
	DumpOutput restyutil.InstrumentOutput
	// Tracing enables OpenTelemetry spans for every request.
	Tracing bool
}

type Client struct {
	http      *resty.Client
	goldenKey string
	userAgent string
	routes    Routes
	tel       telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("gateway", tel)

	if opts.GoldenKey == "" {
		return nil, fmt.Errorf("gateway: golden_key is required")
	}
	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		// max burst >= rps just means that no requests will be dropped
		burst := int(math.Ceil(opts.RequestsPerSecond))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	if opts.Tracing {
		libtelemetry.TraceResty(httpClient, "lotcopy.gateway")
	}
	restyutil.InstrumentClient(httpClient, opts.DumpOutput)

	return &Client{
		http:      httpClient,
		goldenKey: opts.GoldenKey,
		userAgent: opts.UserAgent,
		routes:    opts.Routes.WithDefaults(),
		tel:       tel,
	}, nil
}

func (c *Client) Routes() Routes {
	return c.routes
}

func (c *Client) GoldenKey() string {
	return c.goldenKey
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cookies    []*http.Cookie
}

// IsHTML reports whether the gateway answered with markup rather than JSON.
func (r *Response) IsHTML() bool {
	if strings.Contains(strings.ToLower(r.Header.Get("content-type")), "text/html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(r.Body), []byte("<"))
}

func (r *Response) DecodeJSON(out any) error {
	err := json.Unmarshal(r.Body, out)
	if err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

// Cookie returns the value of a cookie set by the response.
func (r *Response) Cookie(name string) (string, bool) {
	for _, cookie := range r.Cookies {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

// GatewayError is returned for any non-2xx response.
type GatewayError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

const maxErrorBody = 512

func (e *GatewayError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("gateway: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// IsStatus reports whether err is a GatewayError with one of the codes.
func IsStatus(err error, codes ...int) bool {
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		return false
	}
	return slices.Contains(codes, gerr.StatusCode)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	req := c.http.R()
	return c.do(ctx, req, http.MethodGet, path, query)
}

// PostJSON sends body encoded as JSON, an ordered.Map keeps its key order.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body any) (*Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode body: %w", err)
	}
	req := c.http.R().
		SetHeader("content-type", "application/json").
		SetBody(encoded)
	return c.do(ctx, req, http.MethodPost, path, query)
}

// PostForm sends fields url-encoded in their insertion order.
func (c *Client) PostForm(ctx context.Context, path string, query url.Values, fields ordered.Map) (*Response, error) {
	req := c.http.R().
		SetHeader("content-type", "application/x-www-form-urlencoded").
		SetBody(encodeForm(fields))
	return c.do(ctx, req, http.MethodPost, path, query)
}

func encodeForm(fields ordered.Map) string {
	var out strings.Builder
	for i, pair := range fields.Pairs() {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(pair.Key))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(pair.Value))
	}
	return out.String()
}

func (c *Client) do(ctx context.Context, req *resty.Request, method, path string, query url.Values) (*Response, error) {
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	req.SetQueryParam("golden_key", c.goldenKey)

	res, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}

	out := &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
		Cookies:    res.Cookies(),
	}
	if out.StatusCode < 200 || out.StatusCode > 299 {
		c.tel.ReportDebug(report_gateway_status, method, path, out.StatusCode)
		return out, &GatewayError{
			Method:     method,
			Path:       path,
			StatusCode: out.StatusCode,
			Body:       string(out.Body),
		}
	}
	return out, nil
}
