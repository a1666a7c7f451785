package api

import (
	"log"
	"slices"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/credlink/pkg/flow"
	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/ethanbaker/credlink/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	credentials_module "github.com/ethanbaker/credlink/internal/api/modules/credentials"
	health_module "github.com/ethanbaker/credlink/internal/api/modules/health"
	oauth_module "github.com/ethanbaker/credlink/internal/api/modules/oauth"
)

// Start builds every component from the config and runs the server until it fails
func Start(cfg *utils.Config) {
	settings, err := utils.LoadSettings(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to load settings: ", err)
	}

	// Create the duplicate-submission guard
	backend, err := NewGuard(settings)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create guard: ", err)
	}
	defer backend.Close()

	// Sweep expired entries on backends that need it
	if sweepable, ok := backend.Guard.(guard.Sweepable); ok {
		sweeper, err := guard.NewSweeper(sweepable, settings.GuardSweepSchedule)
		if err != nil {
			log.Fatal("[API-MAIN]: Failed to schedule guard sweeps: ", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	// Create the flow coordinator
	coordinator, err := flow.NewCoordinator(&flow.Options{
		Google:          settings.Google,
		Microsoft:       settings.Microsoft,
		MicrosoftTenant: settings.MicrosoftTenant,
		SinkConfig:      settings.N8N,
		Types:           settings.CredentialTypes,
		Guard:           backend.Guard,
		VerifyMailbox:   settings.VerifyMailbox,
	})
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create flow coordinator: ", err)
	}

	engine, err := NewEngine(settings, coordinator, backend.Name)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create engine: ", err)
	}

	status := coordinator.Status()
	log.Printf("[API-MAIN]: Backend server running on port %s (environment: %s, guard: %s)", settings.Port, settings.Environment, backend.Name)
	log.Printf("[API-MAIN]: n8n integration: %s", configured(status.N8N))
	log.Printf("[API-MAIN]: Google OAuth: %s, Microsoft OAuth: %s", configured(status.Google), configured(status.Microsoft))

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + settings.Port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}

// NewEngine creates the gin engine with every module registered
func NewEngine(settings *utils.Settings, coordinator *flow.Coordinator, guardName string) (*gin.Engine, error) {
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", sdk.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !slices.Contains(settings.CORSOrigins, "*"),
		MaxAge:           12 * time.Hour,
	}))

	root := &engine.RouterGroup

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.Init(coordinator, settings.Environment, guardName)
	health_module.RegisterRoutes(root)
	health_module.RegisterRoutes(baseGroup)

	if err := oauth_module.Init(coordinator, settings.SuccessPageURL); err != nil {
		return nil, err
	}
	oauth_module.RegisterRoutes(root, baseGroup, settings.APIKey)

	if err := credentials_module.Init(coordinator); err != nil {
		return nil, err
	}
	credentials_module.RegisterRoutes(baseGroup)

	return engine, nil
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
