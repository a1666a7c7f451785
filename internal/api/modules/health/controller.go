package health

import (
	"net/http"
	"time"

	"github.com/ethanbaker/credlink/pkg/flow"
	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/gin-gonic/gin"
)

var (
	coordinator  *flow.Coordinator
	environment  string
	guardBackend string
)

// Init sets what the health report describes
func Init(c *flow.Coordinator, env, backend string) {
	coordinator = c
	environment = env
	guardBackend = backend
}

// Return status of the API and which services are configured
func getStatus(c *gin.Context) {
	res := sdk.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: environment,
		Guard:       guardBackend,
		Services:    map[string]string{},
	}

	if coordinator != nil {
		status := coordinator.Status()
		res.Services["n8n"] = configured(status.N8N)
		res.Services["google"] = configured(status.Google)
		res.Services["microsoft"] = configured(status.Microsoft)
	}

	c.JSON(http.StatusOK, res)
}

func configured(ok bool) string {
	if ok {
		return sdk.ServiceConfigured
	}
	return sdk.ServiceNotConfigured
}
