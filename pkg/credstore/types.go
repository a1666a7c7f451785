package credstore

import (
	"fmt"
	"maps"
	"os"

	"github.com/ethanbaker/credlink/pkg/providers"
	"gopkg.in/yaml.v3"
)

// DefaultTypes are the credential type identifiers used when no override is configured
var DefaultTypes = map[providers.Provider]string{
	providers.Gmail:   "gmailOAuth2",
	providers.Outlook: "microsoftOutlookOAuth2Api",
	providers.HubSpot: "hubspotAppToken",
	providers.Streak:  "streakApi",
}

// Types resolves the credential type for each provider
type Types struct {
	overrides map[providers.Provider]string
}

// NewTypes creates a resolver with the given overrides; empty values are ignored
func NewTypes(overrides map[providers.Provider]string) *Types {
	t := &Types{overrides: make(map[providers.Provider]string)}
	for p, v := range overrides {
		if v != "" {
			t.overrides[p] = v
		}
	}
	return t
}

// LoadTypesFile reads overrides from a YAML file shaped as `credential_types: {gmail: ..., streak: ...}`
func LoadTypesFile(path string) (map[providers.Provider]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential types file: %w", err)
	}

	var file struct {
		CredentialTypes map[string]string `yaml:"credential_types"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credential types file: %w", err)
	}

	overrides := make(map[providers.Provider]string, len(file.CredentialTypes))
	for key, value := range file.CredentialTypes {
		p, err := providers.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("credential types file: %w", err)
		}
		overrides[p] = value
	}

	return overrides, nil
}

// For returns the credential type for a provider
func (t *Types) For(p providers.Provider) string {
	if t != nil {
		if v, ok := t.overrides[p]; ok {
			return v
		}
	}
	return DefaultTypes[p]
}

// All returns the resolved type for every provider
func (t *Types) All() map[providers.Provider]string {
	out := maps.Clone(DefaultTypes)
	if t != nil {
		maps.Copy(out, t.overrides)
	}
	return out
}
