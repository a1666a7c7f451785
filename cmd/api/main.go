package main

import (
	"github.com/ethanbaker/credlink/internal/api"
	"github.com/ethanbaker/credlink/pkg/utils"
)

// Start the API server
func main() {
	// Load global config from the env files in ENV_FILE (defaults to .env)
	cfg := utils.NewConfigFromEnv(utils.EnvFiles()...)

	// Start
	api.Start(cfg)
}
