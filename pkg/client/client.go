package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"serverlist/pkg/coordinator"
	"serverlist/pkg/history"
	"serverlist/pkg/log"
	"serverlist/pkg/models"
	"serverlist/pkg/probe"
)

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return fmt.Sprintf("server list API returned %d: %s", e.StatusCode, msg)
}

// HistoryResponse is the body of a history request.
type HistoryResponse struct {
	ID      string           `json:"id"`
	Address string           `json:"address"`
	Records []history.Record `json:"records"`
}

// Client talks to a running server list API.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, CreateRetryableClient(defaultRetryMax, defaultRetryWaitMin, defaultRetryWaitMax))
}

// NewWithHTTPClient creates a client using the given retryable client.
func NewWithHTTPClient(baseURL string, httpClient *retryablehttp.Client) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// List returns the current view.
func (c *Client) List(ctx context.Context) (coordinator.View, error) {
	var view coordinator.View
	err := c.do(ctx, http.MethodGet, "/servers", nil, http.StatusOK, &view)
	return view, err
}

// Add adds a server. The request is never retried since each attempt that
// reaches the API appends another entry.
func (c *Client) Add(ctx context.Context, name, addr string) (models.ServerEntry, error) {
	var entry models.ServerEntry
	err := c.do(withoutRetry(ctx), http.MethodPost, "/servers", map[string]string{"name": name, "address": addr}, http.StatusCreated, &entry)
	return entry, err
}

// Edit renames and readdresses a server.
func (c *Client) Edit(ctx context.Context, id, name, addr string) (models.ServerEntry, error) {
	var entry models.ServerEntry
	err := c.do(ctx, http.MethodPut, "/servers/"+url.PathEscape(id), map[string]string{"name": name, "address": addr}, http.StatusOK, &entry)
	return entry, err
}

// Delete removes a server.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/servers/"+url.PathEscape(id), nil, http.StatusOK, nil)
}

// Refresh starts probing a server.
func (c *Client) Refresh(ctx context.Context, id string, force bool) error {
	path := "/servers/" + url.PathEscape(id) + "/refresh?force=" + strconv.FormatBool(force)
	return c.do(ctx, http.MethodPost, path, nil, http.StatusAccepted, nil)
}

// Reload makes the API reload its data file.
func (c *Client) Reload(ctx context.Context) (coordinator.View, error) {
	var view coordinator.View
	err := c.do(ctx, http.MethodPost, "/servers/reload", nil, http.StatusOK, &view)
	return view, err
}

// SetFilter sets the name filter.
func (c *Client) SetFilter(ctx context.Context, filter string) (coordinator.View, error) {
	var view coordinator.View
	err := c.do(ctx, http.MethodPut, "/filter", map[string]string{"filter": filter}, http.StatusOK, &view)
	return view, err
}

// History returns recent probe outcomes for a server.
func (c *Client) History(ctx context.Context, id string, limit int) (HistoryResponse, error) {
	var resp HistoryResponse
	path := "/servers/" + url.PathEscape(id) + "/history?limit=" + strconv.Itoa(limit)
	err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &resp)
	return resp, err
}

// Ping probes an address through the API without touching the list.
func (c *Client) Ping(ctx context.Context, addr string) (*probe.Result, error) {
	var result probe.Result
	if err := c.do(ctx, http.MethodGet, "/ping?address="+url.QueryEscape(addr), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close API response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Message = errBody.Error
			apiErr.Reason = errBody.Reason
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
