package providers

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// DefaultMicrosoftTenant accepts both work/school and personal accounts
const DefaultMicrosoftTenant = "common"

// OutlookScopes are the scopes requested for Outlook. offline_access is what makes Microsoft issue a refresh token
var OutlookScopes = []string{"offline_access", "Mail.Read"}

// MicrosoftAdapter links Outlook mailboxes through the Microsoft identity platform
type MicrosoftAdapter struct {
	*oauthAdapter
}

// NewMicrosoftAdapter creates an Outlook adapter for the given tenant (DefaultMicrosoftTenant when empty)
func NewMicrosoftAdapter(cfg Config, tenant string) (*MicrosoftAdapter, error) {
	if tenant == "" {
		tenant = DefaultMicrosoftTenant
	}

	base, err := newOAuthAdapter(
		Outlook,
		cfg,
		microsoft.AzureADEndpoint(tenant),
		OutlookScopes,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	if err != nil {
		return nil, err
	}

	return &MicrosoftAdapter{oauthAdapter: base}, nil
}
