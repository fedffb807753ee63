// Package api is a client of the storybook admin REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/config"
	"sbadm/entity"
)

const RequestIDHeader = "X-Request-Id"

type Client struct {
	base        *url.URL
	http        *http.Client
	streamHTTP  *http.Client
	token       string
	maxResponse int64
	retry       RetryPolicy
	log         *zap.Logger
}

// New creates client from configuration. Passing nil httpClient uses one
// with configured timeout.
func New(cfg *config.APIConfig, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("bad api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("bad api base url %q: unsupported scheme", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	// live stream responses never end, overall timeout would cut them
	stream := *httpClient
	stream.Timeout = 0

	return &Client{
		base:        base,
		http:        httpClient,
		streamHTTP:  &stream,
		token:       cfg.Token.Value(),
		maxResponse: cfg.MaxResponseBytes,
		retry: RetryPolicy{
			Attempts:     cfg.Retry.Attempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		log: log.Named("api"),
	}, nil
}

// URL builds absolute url for API path.
func (c *Client) URL(path string, params url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// StreamURL returns location of live update stream.
func (c *Client) StreamURL(path string, params url.Values) string {
	return c.URL(path, params)
}

type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	accept      string
}

// idempotent reports whether repeating request cannot change server state
// twice. Server may have applied failed write before answering with 5xx.
func (r request) idempotent() bool {
	switch r.method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// do executes request and returns bounded body of 2xx response. Only
// idempotent requests are retried.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	reqID := uuid.NewString()
	log := c.log.With(zap.String("method", r.method), zap.String("url", r.url), zap.String("request_id", reqID))

	policy := c.retry
	if !r.idempotent() {
		policy.Attempts = 1
	}

	var out []byte
	err := policy.retry(ctx,
		func(attempt int, err error, wait time.Duration) {
			log.Debug("Retrying request", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
		func() error {
			start := time.Now()
			resp, err := c.send(ctx, c.http, r, reqID)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := c.readBounded(resp.Body)
			log.Debug("Request done", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(body)))
			if err != nil {
				return err
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				rid := resp.Header.Get(RequestIDHeader)
				if rid == "" {
					rid = reqID
				}
				return newAPIError(resp.StatusCode, rid, body)
			}
			out = body
			return nil
		})
	return out, err
}

func (c *Client) send(ctx context.Context, hc *http.Client, r request, reqID string) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, permanent(fmt.Errorf("unable to create request: %w", err))
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	req.Header.Set(RequestIDHeader, reqID)
	if c.token != "" && c.sameOrigin(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return hc.Do(req)
}

// sameOrigin keeps credentials away from asset hosts.
func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.base.Scheme) && strings.EqualFold(u.Host, c.base.Host)
}

func (c *Client) readBounded(r io.Reader) ([]byte, error) {
	limit := c.maxResponse
	if limit <= 0 {
		limit = 16 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, permanent(fmt.Errorf("response exceeds %d bytes", limit))
	}
	return data, nil
}

func (c *Client) resourceURL(resource common.Resource, id string, params url.Values) string {
	if id == "" {
		return c.URL(resource.Path(), params)
	}
	return c.URL(resource.Path()+"/"+url.PathEscape(id), params)
}

// List fetches one page of resource records.
func (c *Client) List(ctx context.Context, resource common.Resource, params url.Values) (*entity.ListResponse, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, url: c.resourceURL(resource, "", params), accept: "application/json"})
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

func decodeList(body []byte) (*entity.ListResponse, error) {
	// some endpoints return bare array without pagination
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var data []entity.Record
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return nil, fmt.Errorf("unable to decode list: %w", err)
		}
		return &entity.ListResponse{
			Data:       data,
			Pagination: entity.Envelope{Page: 1, TotalPages: 1, Total: len(data), Limit: len(data)},
		}, nil
	}
	var resp entity.ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unable to decode list: %w", err)
	}
	return &resp, nil
}

// decodeRecord accepts both bare record and {"data": {...}} wrapper.
func decodeRecord(body []byte) (entity.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var rec entity.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("unable to decode record: %w", err)
	}
	if inner, ok := rec["data"].(map[string]any); ok && rec.ID() == "" {
		return entity.Record(inner), nil
	}
	return rec, nil
}

// Detail fetches full record including nested sub-resources.
func (c *Client) Detail(ctx context.Context, resource common.Resource, id string) (entity.Record, error) {
	if id == "" {
		return nil, errors.New("empty record id")
	}
	body, err := c.do(ctx, request{method: http.MethodGet, url: c.resourceURL(resource, id, nil), accept: "application/json"})
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// Create posts new record and returns what server made of it.
func (c *Client) Create(ctx context.Context, resource common.Resource, body any) (entity.Record, error) {
	return c.sendJSON(ctx, http.MethodPost, c.resourceURL(resource, "", nil), body)
}

// Update patches existing record.
func (c *Client) Update(ctx context.Context, resource common.Resource, id string, body any) (entity.Record, error) {
	if id == "" {
		return nil, errors.New("empty record id")
	}
	return c.sendJSON(ctx, http.MethodPatch, c.resourceURL(resource, id, nil), body)
}

func (c *Client) sendJSON(ctx context.Context, method, u string, body any) (entity.Record, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("unable to encode request: %w", err)
	}
	resp, err := c.do(ctx, request{method: method, url: u, body: data, contentType: "application/json", accept: "application/json"})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// Upload sends file as multipart form together with additional fields. With
// empty id new record is created.
func (c *Client) Upload(ctx context.Context, resource common.Resource, id, field, name string, data []byte, fields map[string]string) (entity.Record, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("unable to write form field %s: %w", k, err)
		}
	}
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		return nil, fmt.Errorf("unable to create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("unable to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("unable to finish form: %w", err)
	}

	method := http.MethodPatch
	if id == "" {
		method = http.MethodPost
	}
	resp, err := c.do(ctx, request{method: method, url: c.resourceURL(resource, id, nil), body: buf.Bytes(), contentType: mw.FormDataContentType(), accept: "application/json"})
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (c *Client) Delete(ctx context.Context, resource common.Resource, id string) error {
	if id == "" {
		return errors.New("empty record id")
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, url: c.resourceURL(resource, id, nil)})
	return err
}

// Fetch downloads asset content. Relative locations are resolved against
// API base.
func (c *Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("bad asset url %q: %w", location, err)
	}
	if !u.IsAbs() {
		u = c.base.ResolveReference(u)
	}
	return c.do(ctx, request{method: http.MethodGet, url: u.String()})
}

// OpenStream connects to server push endpoint. Caller owns returned body.
// There are no retries here, reconnecting is subscriber business.
func (c *Client) OpenStream(ctx context.Context, location string) (io.ReadCloser, error) {
	reqID := uuid.NewString()
	resp, err := c.send(ctx, c.streamHTTP, request{method: http.MethodGet, url: location, accept: "text/event-stream"}, reqID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := c.readBounded(resp.Body)
		return nil, newAPIError(resp.StatusCode, reqID, body)
	}
	return resp.Body, nil
}
