package utils

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethanbaker/credlink/pkg/credstore"
	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/ethanbaker/credlink/pkg/providers"
	"github.com/go-sql-driver/mysql"
)

const (
	DefaultPort           = "5000"
	DefaultEnvironment    = "development"
	DefaultCORSOrigins    = "http://localhost:3000"
	DefaultSuccessPageURL = "http://localhost:3000/success"
)

// credentialTypeKeys maps each provider to the setting overriding its credential type
var credentialTypeKeys = map[providers.Provider]string{
	providers.Gmail:   "N8N_GMAIL_CRED_TYPE",
	providers.Outlook: "N8N_OUTLOOK_CRED_TYPE",
	providers.HubSpot: "N8N_HUBSPOT_CRED_TYPE",
	providers.Streak:  "N8N_STREAK_CRED_TYPE",
}

// RedisSettings locates the Redis server backing the guard
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// Settings is the typed configuration injected into the service's components
type Settings struct {
	Port           string
	Environment    string
	CORSOrigins    []string
	SuccessPageURL string
	APIKey         string // Protects administrative routes; those routes are disabled when empty

	Google          providers.Config
	Microsoft       providers.Config
	MicrosoftTenant string
	VerifyMailbox   bool

	N8N             credstore.Config
	CredentialTypes *credstore.Types

	Guard              guard.Policy
	GuardSweepSchedule string
	MySQL              *mysql.Config  // Nil when MYSQL_DATABASE is unset
	Redis              *RedisSettings // Nil when REDIS_ADDR is unset
}

// LoadSettings reads the service settings from a config. Missing provider or store credentials are
// not an error here; the components that need them report it when used
func LoadSettings(cfg *Config) (*Settings, error) {
	oauthClient := &http.Client{Timeout: cfg.GetDuration("OAUTH_HTTP_TIMEOUT", providers.DefaultHTTPTimeout)}
	n8nClient := &http.Client{Timeout: cfg.GetDuration("N8N_HTTP_TIMEOUT", credstore.DefaultTimeout)}

	settings := &Settings{
		Port:           cfg.GetWithDefault("PORT", cfg.GetWithDefault("API_PORT", DefaultPort)),
		Environment:    cfg.GetWithDefault("NODE_ENV", cfg.GetWithDefault("ENVIRONMENT", DefaultEnvironment)),
		CORSOrigins:    cfg.GetList("CORS_ALLOWED_ORIGINS"),
		SuccessPageURL: cfg.GetWithDefault("SUCCESS_PAGE_URL", DefaultSuccessPageURL),
		APIKey:         cfg.Get("API_KEY"),

		Google: providers.Config{
			ClientID:     cfg.Get("GOOGLE_CLIENT_ID"),
			ClientSecret: cfg.Get("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  cfg.Get("GOOGLE_REDIRECT_URI"),
			HTTPClient:   oauthClient,
		},
		Microsoft: providers.Config{
			ClientID:     cfg.Get("MS_CLIENT_ID"),
			ClientSecret: cfg.Get("MS_CLIENT_SECRET"),
			RedirectURI:  cfg.Get("MS_REDIRECT_URI"),
			HTTPClient:   oauthClient,
		},
		MicrosoftTenant: cfg.GetWithDefault("MS_TENANT", providers.DefaultMicrosoftTenant),
		VerifyMailbox:   cfg.GetBool("GMAIL_VERIFY_MAILBOX"),

		N8N: credstore.Config{
			BaseURL:    cfg.Get("N8N_API_URL"),
			APIKey:     cfg.Get("N8N_API_KEY"),
			HTTPClient: n8nClient,
		},

		Guard: guard.Policy{
			TTL:        cfg.GetDuration("GUARD_TTL", guard.DefaultPolicy.TTL),
			MaxEntries: cfg.GetIntWithDefault("GUARD_MAX_ENTRIES", guard.DefaultPolicy.MaxEntries),
		},
		GuardSweepSchedule: cfg.GetWithDefault("GUARD_SWEEP_SCHEDULE", guard.DefaultSweepSchedule),
	}

	if len(settings.CORSOrigins) == 0 {
		settings.CORSOrigins = []string{DefaultCORSOrigins}
	}

	// Credential types: defaults, then the YAML file, then individual settings
	overrides := make(map[providers.Provider]string)
	if path := cfg.Get("CREDENTIAL_TYPES_PATH"); path != "" {
		fileOverrides, err := credstore.LoadTypesFile(path)
		if err != nil {
			return nil, err
		}
		overrides = fileOverrides
	}
	for p, key := range credentialTypeKeys {
		if value := cfg.Get(key); value != "" {
			overrides[p] = value
		}
	}
	settings.CredentialTypes = credstore.NewTypes(overrides)

	// Guard backends
	if database := cfg.Get("MYSQL_DATABASE"); database != "" {
		settings.MySQL = &mysql.Config{
			User:                 cfg.Get("MYSQL_USER"),
			Passwd:               cfg.GetFirst("MYSQL_PASSWORD", "MYSQL_ROOT_PASSWORD"),
			Net:                  "tcp",
			Addr:                 fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
			DBName:               database,
			ParseTime:            true,
			Loc:                  time.UTC,
			AllowNativePasswords: true,
		}
	}

	if addr := cfg.Get("REDIS_ADDR"); addr != "" {
		settings.Redis = &RedisSettings{
			Addr:     addr,
			Password: cfg.Get("REDIS_PASSWORD"),
			DB:       cfg.GetInt("REDIS_DB"),
		}
	}

	if settings.Guard.TTL < 0 {
		return nil, fmt.Errorf("GUARD_TTL cannot be negative")
	}
	if settings.Guard.MaxEntries < 0 {
		return nil, fmt.Errorf("GUARD_MAX_ENTRIES cannot be negative")
	}

	return settings, nil
}

// IsProduction reports whether the service runs in production mode
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}
