package providers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethanbaker/credlink/pkg/linkerr"
	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds a single call to a provider's token endpoint
const DefaultHTTPTimeout = 15 * time.Second

// Adapter builds authorization URLs for one OAuth2 provider and exchanges its authorization codes
type Adapter interface {
	// Provider returns the provider this adapter serves
	Provider() Provider

	// AuthorizationURL composes the consent URL carrying the opaque state
	AuthorizationURL(state string) string

	// ExchangeCode trades an authorization code for tokens at the provider's token endpoint
	ExchangeCode(ctx context.Context, code string) (*TokenSet, error)

	// ClientCredentials returns the OAuth client id and secret the tokens were issued to
	ClientCredentials() (clientID string, clientSecret string)
}

// MailboxProber is implemented by adapters that can look up the mailbox a token grants access to
type MailboxProber interface {
	Mailbox(ctx context.Context, tokens *TokenSet) (string, error)
}

// Config holds the settings for one OAuth2 provider
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string // Must match the URI registered at the provider

	AuthURL  string // Overrides the provider's authorization endpoint
	TokenURL string // Overrides the provider's token endpoint

	HTTPClient *http.Client // Used for token exchange; defaults to a client with DefaultHTTPTimeout
}

// oauthAdapter is the shared implementation behind the Google and Microsoft adapters
type oauthAdapter struct {
	provider   Provider
	config     *oauth2.Config
	authParams []oauth2.AuthCodeOption
	httpClient *http.Client
}

// newOAuthAdapter validates the config and builds the oauth2 configuration for a provider
func newOAuthAdapter(p Provider, cfg Config, endpoint oauth2.Endpoint, scopes []string, params ...oauth2.AuthCodeOption) (*oauthAdapter, error) {
	// Fail fast before any network call can happen
	var missing []string
	if strings.TrimSpace(cfg.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		missing = append(missing, "client secret")
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return nil, &linkerr.ConfigurationError{Component: p.Label() + " OAuth", Missing: missing}
	}

	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	// Client credentials travel in the form body, as both providers document
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &oauthAdapter{
		provider: p,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		authParams: params,
		httpClient: httpClient,
	}, nil
}

// Provider returns the provider this adapter serves
func (a *oauthAdapter) Provider() Provider {
	return a.provider
}

// AuthorizationURL composes the consent URL carrying the opaque state
func (a *oauthAdapter) AuthorizationURL(state string) string {
	return a.config.AuthCodeURL(state, a.authParams...)
}

// ClientCredentials returns the OAuth client id and secret
func (a *oauthAdapter) ClientCredentials() (string, string) {
	return a.config.ClientID, a.config.ClientSecret
}

// ExchangeCode trades an authorization code for tokens
func (a *oauthAdapter) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &linkerr.ValidationError{Field: "code", Message: "Missing authorization code"}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	log.Printf("[OAUTH]: Exchanging %s authorization code (client_id: %s, redirect_uri: %s)", a.provider, presence(a.config.ClientID), a.config.RedirectURL)

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, a.classify(err)
	}

	tokens := tokenSetFrom(tok)
	log.Printf("[OAUTH]: %s token received (access_token: %s, refresh_token: %s, scope: %s)", a.provider, presence(tokens.AccessToken), presence(tokens.RefreshToken), tokens.Scope)

	return tokens, nil
}

// classify maps an oauth2 error into the error taxonomy, separating provider rejections from transport failures
func (a *oauthAdapter) classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
			log.Printf("[OAUTH]: %s token endpoint answered %d, headers: %v", a.provider, status, retrieveErr.Response.Header)
		}
		log.Printf("[OAUTH]: %s token endpoint body: %s", a.provider, string(retrieveErr.Body))

		return &linkerr.TokenExchangeError{
			Provider:   a.provider.String(),
			HTTPStatus: status,
			Body:       string(retrieveErr.Body),
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Printf("[OAUTH]: No response from %s token endpoint: %v", a.provider, err)
		return &linkerr.TransportError{Target: a.provider.Label() + " token endpoint", Err: err}
	}

	// The endpoint answered with success but the body was unusable (e.g. no access_token)
	log.Printf("[OAUTH]: Unusable %s token response: %v", a.provider, err)
	return &linkerr.TokenExchangeError{
		Provider:   a.provider.String(),
		HTTPStatus: http.StatusOK,
		Body:       err.Error(),
	}
}

// presence renders a secret as Present/Missing for logs
func presence(s string) string {
	if s == "" {
		return "Missing"
	}
	return "Present"
}
