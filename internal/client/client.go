// Package client is a small HTTP client for the site backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/techelons/site/internal/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "SITE_HTTP_TIMEOUT"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Client talks to one site backend instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// SiteContent returns the site content document.
func (c *Client) SiteContent(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodGet, "/api/content", nil, nil, &resp)
	return resp, err
}

// EventData returns the event data document.
func (c *Client) EventData(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodGet, "/api/techelons", nil, nil, &resp)
	return resp, err
}

// Workshop returns the workshop section of the site content.
func (c *Client) Workshop(ctx context.Context) (models.Workshop, error) {
	var resp models.Workshop
	err := c.do(ctx, http.MethodGet, "/api/content/workshop", nil, nil, &resp)
	return resp, err
}

// UnusedFiles runs a scan on the server.
func (c *Client) UnusedFiles(ctx context.Context) (models.ScanResult, error) {
	var resp models.ScanResult
	err := c.do(ctx, http.MethodGet, "/api/files/unused", nil, nil, &resp)
	return resp, err
}

// TotalCount returns the number of stored files.
func (c *Client) TotalCount(ctx context.Context) (int64, error) {
	var resp struct {
		TotalCount int64 `json:"totalCount"`
	}
	err := c.do(ctx, http.MethodGet, "/api/files/stats", nil, nil, &resp)
	return resp.TotalCount, err
}

// Methodology describes how the server decides a file is unused.
func (c *Client) Methodology(ctx context.Context) (models.Methodology, error) {
	var resp models.Methodology
	err := c.do(ctx, http.MethodGet, "/api/files/methodology", nil, nil, &resp)
	return resp, err
}

// DeleteFiles deletes the given files.
func (c *Client) DeleteFiles(ctx context.Context, ids []string) (models.DeleteResult, error) {
	var resp models.DeleteResult
	body := map[string][]string{"fileIds": ids}
	err := c.do(ctx, http.MethodDelete, "/api/files/unused", nil, body, &resp)
	return resp, err
}

// InvalidateCache drops all cached content on the server.
func (c *Client) InvalidateCache(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/cache/invalidate", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
		return &Error{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Message}
	}
	return &Error{Status: resp.StatusCode, Message: "api error: " + resp.Status}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultHTTPTimeout
	}
	return d
}
