package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/httputil"
	"github.com/FaYMan2/terdel/pkg/observability"
	"github.com/FaYMan2/terdel/pkg/schema"
	"github.com/FaYMan2/terdel/pkg/source"
)

// Client is an HTTP client for the terdel API.
type Client struct {
	base     *url.URL
	http     *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithRetry sets the attempt count and initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse API URL")
	}

	c := &Client{
		base:     u,
		http:     httputil.NewHTTPClient(),
		headers:  map[string]string{"Accept": "application/json"},
		attempts: httputil.DefaultAttempts,
		delay:    httputil.DefaultDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

// TableNames lists the tables of the remote schema.
func (c *Client) TableNames(ctx context.Context) ([]string, error) {
	var resp struct {
		TableNames []string `json:"table_names"`
	}
	if err := c.get(ctx, "/table-names", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.TableNames) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no tables found")
	}
	return resp.TableNames, nil
}

// Columns returns the raw columns of table.
func (c *Client) Columns(ctx context.Context, table string) ([]schema.RawColumn, error) {
	var resp struct {
		TableSchema []schema.RawColumn `json:"table_schema"`
	}
	if err := c.get(ctx, "/table-schema/"+url.PathEscape(table), nil, &resp); err != nil {
		if errors.GetCode(err) == errors.ErrCodeNotFound {
			return nil, errors.Wrap(errors.ErrCodeTableNotFound, err, "table %q not found", table)
		}
		return nil, err
	}
	if resp.TableSchema == nil {
		resp.TableSchema = []schema.RawColumn{}
	}
	return resp.TableSchema, nil
}

// Constraints returns the flat constraint list of the remote schema.
func (c *Client) Constraints(ctx context.Context) ([]schema.Constraint, error) {
	var resp struct {
		Constraints []schema.Constraint `json:"constraints"`
	}
	if err := c.get(ctx, "/constraints", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Constraints == nil {
		resp.Constraints = []schema.Constraint{}
	}
	return resp.Constraints, nil
}

// Version returns the server's database version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// TableData returns up to limit rows of table; limit <= 0 lets the server
// decide.
func (c *Client) TableData(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.get(ctx, "/table-data/"+url.PathEscape(table), q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []map[string]any{}
	}
	return resp.Data, nil
}

// InsertRow inserts one row and returns it as stored by the server.
// Inserts are not retried.
func (c *Client) InsertRow(ctx context.Context, table string, values map[string]any) (map[string]any, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request body cannot be empty")
	}
	body, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode row")
	}

	var resp struct {
		Message string         `json:"message"`
		Row     map[string]any `json:"row"`
	}
	err = c.do(ctx, http.MethodPost, "/table-data/"+url.PathEscape(table), nil, body, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Row, nil
}

// Close is a no-op; it exists so a Client satisfies [source.Backend].
func (c *Client) Close() error { return nil }

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	return httputil.Retry(ctx, c.attempts, c.delay, func() error {
		return c.do(ctx, http.MethodGet, path, q, nil, v)
	})
}

// do issues one request. path is already escaped; table names go through
// url.PathEscape so a "/" in a name stays inside its segment.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, v any) error {
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	decoded, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request path")
	}
	u.Path = decoded
	u.RawQuery = q.Encode()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, u.Host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, u.Host, path, err)
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, path)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, u.Host, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s response", path)
	}
	return nil
}

// envelope is the error body written by the terdel server.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// responseError converts a non-2xx response into a coded error. The server's
// own code is preferred; otherwise the status decides.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env envelope
	_ = json.Unmarshal(data, &env)

	msg := env.Message
	if env.Details != "" {
		msg = env.Details
	}
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	code := errors.Code(env.Error)
	if !knownCode(code) {
		code = codeForStatus(resp.StatusCode)
	}
	return httputil.StatusError(resp.StatusCode, errors.New(code, "%s", msg))
}

func codeForStatus(status int) errors.Code {
	switch {
	case status == http.StatusNotFound:
		return errors.ErrCodeNotFound
	case status == http.StatusGatewayTimeout:
		return errors.ErrCodeTimeout
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return errors.ErrCodeNetwork
	case status >= 400 && status < 500:
		return errors.ErrCodeInvalidInput
	default:
		return errors.ErrCodeInternal
	}
}

func knownCode(c errors.Code) bool {
	switch c {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidIdentifier, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidConfig, errors.ErrCodeNotFound, errors.ErrCodeTableNotFound,
		errors.ErrCodeNetwork, errors.ErrCodeTimeout, errors.ErrCodeDatabase, errors.ErrCodeInternal:
		return true
	}
	return false
}

var _ source.Backend = (*Client)(nil)
