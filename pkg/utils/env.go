package utils

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFiles returns the .env files to load: ENV_FILE when set, otherwise ".env"
func EnvFiles() []string {
	if file := os.Getenv("ENV_FILE"); file != "" {
		return strings.Split(file, ",")
	}
	return []string{".env"}
}

// LoadEnv loads the given .env files into the process environment and returns the whole
// environment as a map. Variables already set in the environment are not overridden, and
// missing files are skipped
func LoadEnv(files ...string) map[string]string {
	for _, file := range files {
		file = strings.TrimSpace(file)
		if _, err := os.Stat(file); err != nil {
			continue
		}

		if err := godotenv.Load(file); err != nil {
			log.Printf("[UTILS]: Warning, could not load %s: %v", file, err)
		}
	}

	env := make(map[string]string)
	for _, entry := range os.Environ() {
		if key, value, ok := strings.Cut(entry, "="); ok && key != "" {
			env[key] = value
		}
	}

	return env
}
