package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Client talks to a PostgREST-style data API: record CRUD over HTTPS with an
// API key header plus a bearer token.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// APIError is a non-2xx response from the data API. Message carries the
// structured error detail when the body was JSON, Raw the body text otherwise.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Raw        string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("data api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("data api: %d %s", e.StatusCode, e.Raw)
}

// Detail returns the most specific human-readable error text available.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Raw
}

func New(baseURL, apiKey, serviceToken string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: serviceToken})
	httpc := oauth2.NewClient(context.Background(), src)
	httpc.Timeout = 30 * time.Second
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   httpc,
	}
}

// CreateRecord inserts one record into the named table and returns the
// representation echoed by the server along with the HTTP status. A non-2xx
// response comes back as *APIError; transport failures come back as-is.
func (c *Client) CreateRecord(ctx context.Context, table string, record any) ([]byte, int, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, 0, fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+table, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, decodeError(resp.StatusCode, respBody)
	}
	return respBody, resp.StatusCode, nil
}

// Ping issues one GET against the API root to confirm reachability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("data api unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func decodeError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Raw: strings.TrimSpace(string(body))}

	// PostgREST error bodies look like {"code":..,"message":..,"details":..,"hint":..}.
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	}
	return apiErr
}
