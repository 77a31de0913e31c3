package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"garage-go/internal/garage"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "garage-cli"

// Client talks to the garage REST backend. It implements garage.Backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    garage.TokenProvider
	ids       garage.IDGenerator
	userAgent string
	logger    garage.Logger
}

var _ garage.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithIDGenerator sets the source of X-Request-ID values.
func WithIDGenerator(g garage.IDGenerator) Option {
	return func(c *Client) { c.ids = g }
}

func WithLogger(l garage.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the backend at baseURL. tokens may be nil for an
// anonymous client.
func New(baseURL string, tokens garage.TokenProvider, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if tokens == nil {
		tokens = garage.StaticToken("")
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{},
		tokens:    tokens,
		ids:       garage.UUIDGenerator{},
		userAgent: DefaultUserAgent,
		logger:    garage.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// request describes one call. body is either encoded as JSON or, when raw is
// set, sent as is.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	raw         io.Reader
	contentType string
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends req and decodes a JSON response into out, which may be nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	body := req.raw
	contentType := req.contentType
	if body == nil && req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	requestID := c.ids.New()
	httpReq.Header.Set("X-Request-ID", requestID)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("reading session token: %w", err)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID)

	if resp.StatusCode >= 300 {
		return newAPIError(req.method, req.path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", req.method, req.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, request{method: method, path: path, body: body}, out)
}

// upload posts a multipart form holding fields and the contents of r under the
// "file" field. The body is streamed so large attachments are not buffered.
func (c *Client) upload(ctx context.Context, path string, fields map[string]string, filename string, r io.Reader, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, fields, filename, r))
	}()
	// Unblocks the writer goroutine if the request fails before draining pr.
	defer pr.Close()

	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		raw:         pr,
		contentType: mw.FormDataContentType(),
	}, out)
}

func writeForm(mw *multipart.Writer, fields map[string]string, filename string, r io.Reader) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	return mw.Close()
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
