package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethanbaker/api/pkg/api_types"
)

// StartOAuth starts an OAuth flow and returns the provider's authorization URL
func (c *Client) StartOAuth(ctx context.Context, provider string, req *StartOAuthRequest) (string, error) {
	path := fmt.Sprintf("/oauth/start/%s", url.PathEscape(provider))

	var out LinkResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}

	if !out.Success || out.AuthURL == "" {
		return "", fmt.Errorf("no authorization url returned: %s", out.Message)
	}

	return out.AuthURL, nil
}

// ProcessCallback forwards a provider redirect's code and state to the backend
func (c *Client) ProcessCallback(ctx context.Context, req *ProcessCallbackRequest) (*LinkResponse, error) {
	var out LinkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/oauth/process-callback", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// SaveCredentials stores an API key credential for HubSpot or Streak
func (c *Client) SaveCredentials(ctx context.Context, provider string, req *SaveCredentialsRequest) (*LinkResponse, error) {
	path := fmt.Sprintf("/api/credentials/%s", url.PathEscape(provider))

	var out LinkResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Health returns the backend status
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ReleaseRequest releases a request id held by the duplicate-submission guard. Requires the API key
func (c *Client) ReleaseRequest(ctx context.Context, requestID string) (*ReleaseResponse, error) {
	path := fmt.Sprintf("/api/oauth/requests/%s", url.PathEscape(requestID))

	var out ApiResponse[ReleaseResponse]
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}

	// Check for success
	switch out.Status {
	case api_types.StatusFail:
		return nil, fmt.Errorf("failed to release request: %s", out.Message)
	case api_types.StatusError:
		return nil, fmt.Errorf("error releasing request (%s): %v", out.Message, out.Error)
	}

	return &out.Data, nil
}
