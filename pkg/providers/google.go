package providers

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailReadonlyScope is the single scope requested for Gmail
const GmailReadonlyScope = gmail.GmailReadonlyScope

// GoogleAdapter links Gmail mailboxes through Google's OAuth2 endpoints
type GoogleAdapter struct {
	*oauthAdapter
	apiEndpoint string
}

// GoogleOption customizes a GoogleAdapter
type GoogleOption func(*GoogleAdapter)

// WithGmailEndpoint points the mailbox probe at a different Gmail API base URL
func WithGmailEndpoint(endpoint string) GoogleOption {
	return func(a *GoogleAdapter) {
		a.apiEndpoint = endpoint
	}
}

// NewGoogleAdapter creates a Gmail adapter. Offline access and a forced consent prompt are always
// requested so every run, including a re-consent, yields a refresh token
func NewGoogleAdapter(cfg Config, opts ...GoogleOption) (*GoogleAdapter, error) {
	base, err := newOAuthAdapter(
		Gmail,
		cfg,
		google.Endpoint,
		[]string{GmailReadonlyScope},
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)
	if err != nil {
		return nil, err
	}

	a := &GoogleAdapter{oauthAdapter: base}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Mailbox returns the address of the mailbox the access token was granted for
func (a *GoogleAdapter) Mailbox(ctx context.Context, tokens *TokenSet) (string, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return "", fmt.Errorf("access token is required to probe the mailbox")
	}

	// Build an authorized client on top of the adapter's transport
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens.AccessToken,
		TokenType:   tokens.TokenType,
	})

	clientOpts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, source))}
	if a.apiEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(a.apiEndpoint))
	}

	service, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}

	profile, err := service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch gmail profile: %w", err)
	}

	return profile.EmailAddress, nil
}
