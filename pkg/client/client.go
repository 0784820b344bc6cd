package pagevec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Client calls a pagevec server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("pagevec: base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("pagevec: parse base URL: %w", err)
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.token,
		http:    cfg.httpClient,
		obs:     obs,
	}, nil
}

// Scrape renders url on the server, normalizes and stores it.
func (c *Client) Scrape(ctx context.Context, pageURL string) (rec Record, err error) {
	start := time.Now()
	defer func() { c.obs.observe("scrape", start, err) }()

	err = c.do(ctx, http.MethodPost, "/api/scrape", map[string]string{"url": pageURL}, http.StatusCreated, &rec)
	return rec, err
}

// List returns one page of stored records.
func (c *Client) List(ctx context.Context, p ListParams) (res RecordList, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list", start, err) }()

	q := url.Values{}
	if p.Title != "" {
		q.Set("title", p.Title)
	}
	if p.URL != "" {
		q.Set("url", p.URL)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	path := "/api/scrape"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	err = c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &res)
	return res, err
}

// Get returns one stored record.
func (c *Client) Get(ctx context.Context, id string) (rec Record, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	err = c.do(ctx, http.MethodGet, "/api/scrape/"+url.PathEscape(id), nil, http.StatusOK, &rec)
	return rec, err
}

// Delete removes one stored record.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	return c.do(ctx, http.MethodDelete, "/api/scrape/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Search ranks stored records against query. limit <= 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, limit int) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	err = c.do(ctx, http.MethodPost, "/api/search", body, http.StatusOK, &res)
	return res, err
}

// Health returns the server health report. A degraded or failing server
// still yields a report together with an *APIError.
func (c *Client) Health(ctx context.Context) (h Health, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return Health{}, fmt.Errorf("pagevec: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("pagevec: health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("pagevec: decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, &APIError{Status: resp.StatusCode, Code: h.Status, Message: "service " + h.Status}
	}
	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pagevec: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("pagevec: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pagevec: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pagevec: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
