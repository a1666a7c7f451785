package providers

import (
	"strings"

	"github.com/ethanbaker/credlink/pkg/linkerr"
)

// Provider identifies a third-party account type that can be linked
type Provider string

const (
	// Gmail links a Google mailbox over OAuth2
	Gmail Provider = "gmail"

	// Outlook links a Microsoft mailbox over OAuth2
	Outlook Provider = "outlook"

	// HubSpot links a HubSpot private app token
	HubSpot Provider = "hubspot"

	// Streak links a Streak API key
	Streak Provider = "streak"
)

// Kind separates providers linked through an OAuth2 consent flow from the ones linked with a static secret
type Kind int

const (
	KindOAuth Kind = iota
	KindAPIKey
)

// All lists every provider in display order
var All = []Provider{Gmail, Outlook, HubSpot, Streak}

// Parse converts a caller-supplied identifier into a Provider
func Parse(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Gmail, Outlook, HubSpot, Streak:
		return p, nil
	default:
		return "", &linkerr.UnsupportedProviderError{Provider: s}
	}
}

// ParseOAuth converts an identifier into a Provider and requires it to use the OAuth2 flow
func ParseOAuth(s string) (Provider, error) {
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	if p.Kind() != KindOAuth {
		return "", &linkerr.UnsupportedProviderError{Provider: s, Reason: "provider is linked with an API key"}
	}
	return p, nil
}

// ParseAPIKey converts an identifier into a Provider and requires it to use a static secret
func ParseAPIKey(s string) (Provider, error) {
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	if p.Kind() != KindAPIKey {
		return "", &linkerr.UnsupportedProviderError{Provider: s, Reason: "provider is linked with OAuth"}
	}
	return p, nil
}

// String returns the wire identifier
func (p Provider) String() string {
	return string(p)
}

// Label returns the display label used in credential names
func (p Provider) Label() string {
	switch p {
	case Gmail:
		return "Gmail"
	case Outlook:
		return "Outlook"
	case HubSpot:
		return "HubSpot"
	case Streak:
		return "Streak"
	default:
		return string(p)
	}
}

// Kind returns how the provider is linked
func (p Provider) Kind() Kind {
	switch p {
	case HubSpot, Streak:
		return KindAPIKey
	default:
		return KindOAuth
	}
}
