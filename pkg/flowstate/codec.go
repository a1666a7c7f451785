package flowstate

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethanbaker/credlink/pkg/linkerr"
	"github.com/ethanbaker/credlink/pkg/providers"
)

// State is the context carried through a provider redirect inside the opaque state parameter
type State struct {
	Provider    providers.Provider `json:"provider"`  // OAuth provider the flow was started for
	DisplayName string             `json:"name"`      // User-supplied display name
	Email       string             `json:"email"`     // User-supplied email
	IssuedAt    int64              `json:"timestamp"` // Creation time in Unix milliseconds
}

// New creates a state stamped with the given time
func New(provider providers.Provider, displayName, email string, now time.Time) State {
	return State{
		Provider:    provider,
		DisplayName: displayName,
		Email:       email,
		IssuedAt:    now.UnixMilli(),
	}
}

// IssuedTime returns IssuedAt as a time
func (s State) IssuedTime() time.Time {
	return time.UnixMilli(s.IssuedAt)
}

// Encode serializes a state into a URL-safe string without padding
func Encode(s State) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses an encoded state. The input is untrusted: every failure is reported as a
// MalformedStateError, which callers must treat as terminal
func Decode(encoded string) (State, error) {
	var s State

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return s, &linkerr.MalformedStateError{Reason: "state is empty"}
	}

	// Tolerate padding added by clients that re-encode the value
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return s, &linkerr.MalformedStateError{Reason: "not base64url", Err: err}
	}

	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, &linkerr.MalformedStateError{Reason: "not a JSON state record", Err: err}
	}

	// Validate the record shape
	if s.Provider == "" {
		return State{}, &linkerr.MalformedStateError{Reason: "missing provider"}
	}
	switch s.Provider {
	case providers.Gmail, providers.Outlook:
	default:
		return State{}, &linkerr.MalformedStateError{Reason: "provider '" + s.Provider.String() + "' is not an OAuth provider"}
	}
	if s.DisplayName == "" {
		return State{}, &linkerr.MalformedStateError{Reason: "missing name"}
	}
	if s.Email == "" {
		return State{}, &linkerr.MalformedStateError{Reason: "missing email"}
	}

	return s, nil
}
