package credentials_module

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ethanbaker/credlink/pkg/flow"
	"github.com/ethanbaker/credlink/pkg/linkerr"
	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/gin-gonic/gin"
)

var coordinator *flow.Coordinator

// Init sets the coordinator used to store credentials
func Init(c *flow.Coordinator) error {
	if c == nil {
		return fmt.Errorf("coordinator cannot be nil")
	}

	coordinator = c
	return nil
}

// SaveCredentials handles POST requests to store an API key credential for HubSpot or Streak
func SaveCredentials(c *gin.Context) {
	provider := c.Param("provider")

	// Parse request body
	var req sdk.SaveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewLinkFailure(http.StatusBadRequest, "Could not parse request body").AsGinResponse())
		return
	}

	log.Printf("[CREDENTIALS]: Saving %s credentials for %s <%s>", provider, req.Name, req.Email)

	result, err := coordinator.SaveAPIKey(c.Request.Context(), flow.APIKeyRequest{
		Provider:    provider,
		DisplayName: req.Name,
		Email:       req.Email,
		APIKey:      req.APIKey,
		Token:       req.Token,
	})
	if err != nil {
		log.Printf("[CREDENTIALS]: %s credential save error: %v", provider, err)
		res := sdk.NewLinkFailure(linkerr.HTTPStatus(err), linkerr.Message(err))
		res.Retryable = linkerr.Retryable(err)
		c.JSON(res.AsGinResponse())
		return
	}

	res := sdk.NewLinkSuccess(result.Message())
	res.Provider = result.Provider.String()
	res.UserInfo = &sdk.UserInfo{Name: result.DisplayName, Email: result.Email}
	res.CredentialID = result.CredentialID

	c.JSON(res.AsGinResponse())
}
