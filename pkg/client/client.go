// Package client implements form.Backend against the admission REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/submission"
)

// API paths, relative to the base URL.
const (
	PathStudent     = "/student/student/me"
	PathApplication = "/application/student"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 8 << 20
)

// ErrNotFound is matched by errors for unknown applications.
var ErrNotFound = submission.ErrNotFound

// Client talks to the admission API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	header  http.Header
	cookies []*http.Cookie
}

var _ form.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero disables the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// WithBearerToken authenticates requests with token.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token = strings.TrimSpace(token); token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithCookies forwards session cookies with every request.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(c *Client) {
		for _, cookie := range cookies {
			if cookie != nil {
				c.cookies = append(c.cookies, cookie)
			}
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "client: parse base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("client: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		header:  make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Bootstrap fetches the student, settings and form configuration.
func (c *Client) Bootstrap(ctx context.Context) (catalog.Bootstrap, error) {
	var out catalog.Bootstrap
	if err := c.do(ctx, http.MethodGet, PathStudent, nil, "", &out); err != nil {
		return catalog.Bootstrap{}, err
	}
	return out, nil
}

// Application fetches a stored application.
func (c *Client) Application(ctx context.Context, id string) (submission.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return submission.Record{}, errors.New("client: application id is required")
	}
	var out submission.Record
	if err := c.do(ctx, http.MethodGet, PathApplication+"/"+url.PathEscape(id), nil, "", &out); err != nil {
		return submission.Record{}, err
	}
	return out, nil
}

// Save posts env as multipart/form-data.
func (c *Client) Save(ctx context.Context, env submission.Envelope) (submission.Result, error) {
	body, contentType, err := env.Encode()
	if err != nil {
		return submission.Result{}, errors.Wrap(err, "client: encode envelope")
	}
	var saved struct {
		ID            string `json:"_id"`
		ApplicationID string `json:"applicationId"`
	}
	res, err := c.send(ctx, http.MethodPost, PathApplication, body, contentType)
	if err != nil {
		return submission.Result{}, err
	}
	if len(res.Data) > 0 && !bytes.Equal(res.Data, []byte("null")) {
		_ = json.Unmarshal(res.Data, &saved)
	}
	id := saved.ApplicationID
	if id == "" {
		id = saved.ID
	}
	return submission.Result{ApplicationID: id, Message: res.Message}, nil
}

type response struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	res, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return errors.Wrapf(err, "client: decode %s %s", method, path)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return response{}, errors.Wrapf(err, "client: build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, errors.Wrapf(err, "client: %s %s", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return response{}, errors.Wrapf(err, "client: read %s %s", method, path)
	}

	var res response
	var decodeErr error
	if len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, &res)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || (res.Success != nil && !*res.Success) {
		apiErr := &APIError{Status: resp.StatusCode, Message: res.Message, Fields: parseFieldErrors(res.Errors)}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return response{}, errors.WithStack(apiErr)
	}
	if decodeErr != nil {
		return response{}, errors.Wrapf(decodeErr, "client: decode %s %s", method, path)
	}
	return res, nil
}

// endpoint joins an escaped path onto the base URL.
func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

// APIError is a non-2xx response or an explicit success:false.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api error %d: %s", e.Status, e.Message)
}

// FieldErrors returns the per-field messages sent by the server.
func (e *APIError) FieldErrors() map[string][]string { return e.Fields }

// Is matches ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

var _ form.FieldErrorReporter = (*APIError)(nil)

// parseFieldErrors accepts {"field": "msg"}, {"field": ["msg"]},
// [{"field": "f", "message": "msg"}] and ["msg"] shapes.
func parseFieldErrors(raw json.RawMessage) map[string][]string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	out := make(map[string][]string)
	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for key, value := range obj {
			out[key] = append(out[key], messages(value)...)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		for _, item := range items {
			var entry struct {
				Field   string `json:"field"`
				Path    string `json:"path"`
				Message string `json:"message"`
				Msg     string `json:"msg"`
			}
			if err := json.Unmarshal(item, &entry); err != nil {
				out["_form"] = append(out["_form"], messages(item)...)
				continue
			}
			key := entry.Field
			if key == "" {
				key = entry.Path
			}
			msg := entry.Message
			if msg == "" {
				msg = entry.Msg
			}
			out[key] = append(out[key], msg)
		}
	default:
		out["_form"] = messages(raw)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func messages(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}
