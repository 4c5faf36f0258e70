// Package apiclient implements the authenticated HTTP client shared by the
// TaskFlow service wrappers. Each client instance talks to one backend
// origin; all instances share one credential store and one Refresher, so a
// 401 from any backend is recovered through the auth service's single
// refresh authority and the request resent exactly once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/taskflow/taskflow-go/credentials"
)

// Client issues requests against one backend origin with transparent bearer
// injection and refresh-and-retry-once on authorization failure.
type Client struct {
	baseURL    string
	store      credentials.Store
	refresher  *Refresher
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option modifies a Client at construction time.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger; requests are logged at debug with a request id.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for baseURL. The store and refresher are shared with
// the other backend clients; the refresher decides how authorization failures
// are recovered.
func New(baseURL string, store credentials.Store, refresher *Refresher, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[apiclient.New] baseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "[apiclient.New] invalid baseURL")
	}
	if store == nil {
		return nil, errors.New("[apiclient.New] store is required")
	}
	if refresher == nil {
		return nil, errors.New("[apiclient.New] refresher is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		refresher:  refresher,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// request is an immutable descriptor of one logical request. The body is
// captured as bytes so a post-refresh resend reuses the exact same payload.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
}

// Get issues a GET and decodes the JSON response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path}, out)
}

// Post issues a POST with a JSON body (may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Put issues a PUT with a JSON body (may be nil).
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	req, err := jsonRequest(http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	req, err := jsonRequest(http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}

// File is one part of a multipart upload. Field defaults to "files", the
// field name every TaskFlow upload endpoint expects.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// PostMultipart issues a POST with a multipart/form-data body built from the
// given form fields and files.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, files []File, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return errors.Wrap(err, "[Client.PostMultipart] write field")
		}
	}
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "files"
		}
		part, err := writer.CreateFormFile(field, f.Name)
		if err != nil {
			return errors.Wrap(err, "[Client.PostMultipart] create form file")
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return errors.Wrapf(err, "[Client.PostMultipart] read file %q", f.Name)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "[Client.PostMultipart] close writer")
	}

	req := request{
		method:      http.MethodPost,
		path:        path,
		contentType: writer.FormDataContentType(),
		body:        buf.Bytes(),
	}
	return c.do(ctx, req, out)
}

// Download issues a GET expecting a binary body and returns it unread along
// with the response content type. The caller owns closing the reader.
func (c *Client) Download(ctx context.Context, path string) (io.ReadCloser, string, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: path}, 0)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, "", normalizeError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func jsonRequest(method, path string, body any) (request, error) {
	req := request{method: method, path: path}
	if body == nil {
		return req, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return request{}, errors.Wrap(err, "[apiclient] marshal request body")
	}
	req.body = data
	req.contentType = "application/json"
	return req, nil
}

// do runs the request through send and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return normalizeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client.do] decode response")
	}
	return nil
}

// send performs one attempt of req. On a 401 during attempt 0 it refreshes
// through the shared Refresher and resends once with the token re-read from
// the store; the resend's response is final whatever its status. A refresh
// failure is returned in place of the original 401.
func (c *Client) send(ctx context.Context, req request, attempt int) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader(req.body))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.send] build request")
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	// A missing token is not an error: the request goes out unauthenticated
	// and the backend decides.
	if token := c.store.AccessToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With().
		Str("request_id", uuid.New().String()).
		Str("method", req.method).
		Str("path", req.path).
		Int("attempt", attempt).
		Logger()
	logger.Debug().Msg("sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug().Err(err).Msg("transport failure")
		return nil, errors.Wrap(err, "request failed")
	}

	if resp.StatusCode != http.StatusUnauthorized || attempt > 0 {
		return resp, nil
	}
	resp.Body.Close()

	logger.Warn().Msg("access token rejected, refreshing")
	if err := c.refresher.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, req, attempt+1)
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

// Query appends url-encoded params to path, returning path unchanged when
// params is empty.
func Query(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
