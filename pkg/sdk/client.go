package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIKeyHeader carries the administrative API key
const APIKeyHeader = "X-API-KEY"

// Client wraps calls to the credential linking backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. The API key is only needed for administrative calls
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ResponseError is returned when the backend answers with a non-success status
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Retryable  bool // The backend reported that sending the request again may succeed
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("[BACKEND]: backend '%s %s' failed: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the backend's own message when there is one
		b, _ := io.ReadAll(resp.Body)

		var failure struct {
			Message   string `json:"message"`
			Retryable bool   `json:"retryable"`
		}
		message := strings.TrimSpace(string(b))
		if err := json.Unmarshal(b, &failure); err == nil && failure.Message != "" {
			message = failure.Message
		}

		return &ResponseError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: message, Retryable: failure.Retryable}
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	return json.NewDecoder(resp.Body).Decode(out)
}
