package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse is the envelope used by administrative routes
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a JSON string
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Linking responses */

// UserInfo identifies the user a credential was linked for
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LinkResponse is the shape every linking route answers with, on success and on failure
type LinkResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	UserInfo     *UserInfo `json:"userInfo,omitempty"`
	CredentialID string    `json:"credentialId,omitempty"`
	AuthURL      string    `json:"authUrl,omitempty"`
	Retryable    bool      `json:"retryable,omitempty"` // Set on failures that may succeed when sent again

	code int
}

// AsGinResponse converts the LinkResponse to a format suitable for Gin framework
func (r LinkResponse) AsGinResponse() (int, any) {
	if r.code == 0 {
		return http.StatusOK, r
	}
	return r.code, r
}

// NewLinkSuccess creates a successful linking response
func NewLinkSuccess(message string) LinkResponse {
	return LinkResponse{Success: true, Message: message, code: http.StatusOK}
}

// NewLinkFailure creates a failed linking response with the given status code
func NewLinkFailure(code int, message string) LinkResponse {
	return LinkResponse{Success: false, Message: message, code: code}
}

/** Requests */

// StartOAuthRequest is the body of POST /oauth/start/:provider
type StartOAuthRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProcessCallbackRequest is the body of POST /oauth/process-callback. Provider, name and email
// are echoed back when the request id was already processed
type ProcessCallbackRequest struct {
	Code      string `json:"code"`
	State     string `json:"state"`
	Provider  string `json:"provider,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// SaveCredentialsRequest is the body of POST /api/credentials/:provider. HubSpot reads apiKey,
// Streak reads token
type SaveCredentialsRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	APIKey string `json:"apiKey,omitempty"`
	Token  string `json:"token,omitempty"`
}

/** Health */

const (
	ServiceConfigured    = "configured"
	ServiceNotConfigured = "not configured"
)

// HealthResponse reports the service status and which dependencies are configured
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Environment string            `json:"environment"`
	Guard       string            `json:"guard,omitempty"`
	Services    map[string]string `json:"services"`
}

/** Administration */

// ReleaseResponse is the data of DELETE /api/oauth/requests/:requestId
type ReleaseResponse struct {
	RequestID string `json:"requestId"`
	Released  bool   `json:"released"` // False when the id was not marked
}
