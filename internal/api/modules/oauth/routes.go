package oauth_module

import (
	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the OAuth routes. The flow routes live at the root, where the browser client
// and the provider redirect expect them. The administrative route is only registered when an API key is set
func RegisterRoutes(root *gin.RouterGroup, api *gin.RouterGroup, apiKey string) {
	// Flow routes
	root.POST("/oauth/start/:provider", StartOAuth)       // Start a flow and return the authorization URL
	root.GET("/oauth2callback", OAuthCallback)            // Provider redirect, answered with a browser redirect
	root.POST("/oauth/process-callback", ProcessCallback) // Redirect data forwarded by the browser client

	if apiKey == "" {
		return
	}

	// Protected routes
	group := api.Group("/oauth")
	group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(makeApiKeyValidator(apiKey)))

	group.DELETE("/requests/:requestId", ReleaseRequest) // Release a request id held by the guard
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(apiKey string) func(key string) bool {
	return func(key string) bool {
		return key == apiKey
	}
}
