package credentials_module

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the routes for the credentials module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/credentials")

	group.POST("/:provider", SaveCredentials) // Store an API key credential
}
