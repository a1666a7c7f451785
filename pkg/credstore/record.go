package credstore

import (
	"fmt"

	"github.com/ethanbaker/credlink/pkg/providers"
)

// Record is the payload the credential store persists as a named, typed credential
type Record struct {
	Name string `json:"name"` // {ProviderLabel}_{displayName}_{email}, not guaranteed unique
	Type string `json:"type"` // Store-specific credential type identifier
	Data any    `json:"data"` // Provider-specific shape matching the credential type's schema
}

// OAuthTokenData mirrors the token block the store's OAuth2 credential types expect
type OAuthTokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// OAuthData is the data block of an OAuth2 credential
type OAuthData struct {
	ClientID                     string         `json:"clientId"`
	ClientSecret                 string         `json:"clientSecret"`
	OAuthTokenData               OAuthTokenData `json:"oauthTokenData"`
	SendAdditionalBodyProperties bool           `json:"sendAdditionalBodyProperties"`
	AdditionalBodyProperties     map[string]any `json:"additionalBodyProperties"`
}

// HubSpotData is the data block of a HubSpot app token credential
type HubSpotData struct {
	AppToken string `json:"appToken"`
}

// StreakData is the data block of a Streak API credential
type StreakData struct {
	APIKey string `json:"apiKey"`
}

// RecordName derives the credential name for a provider and user
func RecordName(p providers.Provider, displayName, email string) string {
	return fmt.Sprintf("%s_%s_%s", p.Label(), displayName, email)
}

// NewOAuthRecord shapes an OAuth provider's tokens into a credential record
func NewOAuthRecord(p providers.Provider, credType, clientID, clientSecret string, tokens *providers.TokenSet, displayName, email string) Record {
	tokenType := tokens.TokenType
	if tokenType == "" {
		tokenType = providers.DefaultTokenType
	}

	return Record{
		Name: RecordName(p, displayName, email),
		Type: credType,
		Data: OAuthData{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			OAuthTokenData: OAuthTokenData{
				AccessToken:  tokens.AccessToken,
				RefreshToken: tokens.RefreshToken,
				Scope:        tokens.Scope,
				TokenType:    tokenType,
				ExpiresIn:    tokens.ExpiresIn,
			},
			SendAdditionalBodyProperties: false,
			AdditionalBodyProperties:     map[string]any{},
		},
	}
}

// NewAPIKeyRecord shapes a static secret into a credential record. The secret lands under the
// field name the provider's credential type expects
func NewAPIKeyRecord(p providers.Provider, credType, secret, displayName, email string) (Record, error) {
	var data any
	switch p {
	case providers.HubSpot:
		data = HubSpotData{AppToken: secret}
	case providers.Streak:
		data = StreakData{APIKey: secret}
	case providers.Gmail, providers.Outlook:
		return Record{}, fmt.Errorf("provider '%s' is not linked with an API key", p)
	default:
		return Record{}, fmt.Errorf("unknown provider '%s'", p)
	}

	return Record{
		Name: RecordName(p, displayName, email),
		Type: credType,
		Data: data,
	}, nil
}
