package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/credlink/pkg/linkerr"
)

const (
	// CredentialsPath is the store's credential creation endpoint
	CredentialsPath = "/api/v1/credentials"

	// APIKeyHeader carries the store API key
	APIKeyHeader = "X-N8N-API-KEY"

	// DefaultTimeout bounds a single submission
	DefaultTimeout = 30 * time.Second

	// maxResponseBody caps how much of a response is read
	maxResponseBody = 1 << 20
)

// Config holds the settings for the credential store client
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client // Defaults to a client with DefaultTimeout
}

// Stored is the store's answer to a successful submission
type Stored struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// UnmarshalJSON accepts the identifier as a string or a number
func (s *Stored) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
		Type string          `json:"type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	s.Name = raw.Name
	s.Type = raw.Type
	s.ID = ""

	id := bytes.TrimSpace(raw.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}

	var str string
	if err := json.Unmarshal(id, &str); err == nil {
		s.ID = str
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(id, &num); err != nil {
		return fmt.Errorf("unsupported credential id %s", string(id))
	}
	s.ID = num.String()
	return nil
}

// Client submits credential records to the store. It never retries; retry policy belongs to the caller
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a credential store client, failing fast when the URL or API key is missing
func NewClient(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, "N8N_API_URL")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, "N8N_API_KEY")
	}
	if len(missing) > 0 {
		return nil, &linkerr.ConfigurationError{Component: "n8n API", Missing: missing}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Submit creates a credential in the store
func (c *Client) Submit(ctx context.Context, record Record) (*Stored, error) {
	endpoint := c.baseURL + CredentialsPath

	log.Printf("[CREDSTORE]: Submitting credential '%s' (type: %s) to %s", record.Name, record.Type, endpoint)

	// Create request body
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential record: %w", err)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(b))
	if err != nil {
		return nil, fmt.Errorf("failed to build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[CREDSTORE]: Network error, no response received from %s: %v", endpoint, err)
		return nil, &linkerr.TransportError{Target: "n8n API", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &linkerr.TransportError{Target: "n8n API", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logRejection(resp, body)
		return nil, &linkerr.SinkError{HTTPStatus: resp.StatusCode, Body: string(body)}
	}

	// The credential exists once the store answers 2xx, so an unreadable body only costs the id
	var stored Stored
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &stored); err != nil {
			log.Printf("[CREDSTORE]: Could not read credential id from store response (status %d): %v, body: %s", resp.StatusCode, err, string(body))
			stored = Stored{}
		}
	}

	log.Printf("[CREDSTORE]: Credential '%s' stored with status %d (id: %s)", record.Name, resp.StatusCode, stored.ID)
	return &stored, nil
}

// logRejection logs everything the store said about a rejected credential
func logRejection(resp *http.Response, body []byte) {
	log.Printf("[CREDSTORE]: Store rejected credential, status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	log.Printf("[CREDSTORE]: Response headers: %v", resp.Header)
	log.Printf("[CREDSTORE]: Response body: %s", string(body))

	if resp.StatusCode == http.StatusBadRequest {
		log.Println("[CREDSTORE]: A 400 usually means the credential type is wrong, the API key lacks permissions, or the data block does not match the type's schema")
	}
}
