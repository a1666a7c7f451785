package flow

import (
	"context"
	"fmt"

	"github.com/ethanbaker/credlink/pkg/credstore"
	"github.com/ethanbaker/credlink/pkg/providers"
)

// Stage is a step of a linking flow
type Stage string

const (
	StageInitiated        Stage = "initiated"
	StageCodeReceived     Stage = "code_received"
	StageTokenExchanged   Stage = "token_exchanged"
	StageCredentialStored Stage = "credential_stored"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
)

// Error reports the stage a flow had reached when it failed. It unwraps to the underlying
// error so callers can match the error taxonomy with errors.As
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("flow failed after %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sink persists credential records. *credstore.Client implements it
type Sink interface {
	Submit(ctx context.Context, record credstore.Record) (*credstore.Stored, error)
}

// CompleteRequest carries the fields of a finished provider redirect
type CompleteRequest struct {
	Code      string
	State     string
	RequestID string // Optional idempotency token

	// Forwarded display data. Only used to answer a duplicate submission
	Provider    string
	DisplayName string
	Email       string
}

// APIKeyRequest carries a static secret for an API-key provider
type APIKeyRequest struct {
	Provider    string
	DisplayName string
	Email       string
	APIKey      string // HubSpot
	Token       string // Streak
}

// Result is the normalized outcome of a completed flow
type Result struct {
	Provider     providers.Provider
	DisplayName  string
	Email        string
	CredentialID string
	Duplicate    bool // The request id was already processed and no work was done
	Stage        Stage
}

// Message returns the user-facing summary of a result
func (r *Result) Message() string {
	if r.Duplicate {
		return fmt.Sprintf("%s credentials already processed", r.Provider)
	}
	return fmt.Sprintf("%s credentials saved successfully", r.Provider)
}

// ServiceStatus reports whether each outbound dependency is configured
type ServiceStatus struct {
	N8N       bool
	Google    bool
	Microsoft bool
}
