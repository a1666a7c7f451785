package oauth_module

import (
	"net/http"

	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// StartOAuth handles POST requests to start an OAuth flow
func StartOAuth(c *gin.Context) {
	provider := c.Param("provider")

	// Parse request body
	var req sdk.StartOAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewLinkFailure(http.StatusBadRequest, "Could not parse request body").AsGinResponse())
		return
	}

	c.JSON(oauthService.Start(provider, &req).AsGinResponse())
}

// OAuthCallback handles the provider redirect and sends the browser to the success page
func OAuthCallback(c *gin.Context) {
	target := oauthService.Callback(c.Request.Context(), c.Query("code"), c.Query("state"), c.Query("error"))
	c.Redirect(http.StatusFound, target)
}

// ProcessCallback handles POST requests carrying a provider redirect forwarded by the browser client
func ProcessCallback(c *gin.Context) {
	// Parse request body
	var req sdk.ProcessCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewLinkFailure(http.StatusBadRequest, "Could not parse request body").AsGinResponse())
		return
	}

	c.JSON(oauthService.Process(c.Request.Context(), &req).AsGinResponse())
}

// ReleaseRequest handles DELETE requests to release a request id held by the guard
func ReleaseRequest(c *gin.Context) {
	requestID := c.Param("requestId")

	released, err := oauthService.Release(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to release request", err.Error()).AsGinResponse())
		return
	}

	resp := &sdk.ReleaseResponse{RequestID: requestID, Released: released}
	c.JSON(sdk.NewSuccessResponse("Request released successfully", resp).AsGinResponse())
}
