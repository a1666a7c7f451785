package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethanbaker/credlink/pkg/credstore"
	"github.com/ethanbaker/credlink/pkg/flowstate"
	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/ethanbaker/credlink/pkg/linkerr"
	"github.com/ethanbaker/credlink/pkg/providers"
	"github.com/google/uuid"
)

// Options configures a Coordinator. Adapters and Sink take precedence over the matching configs
type Options struct {
	Google          providers.Config
	Microsoft       providers.Config
	MicrosoftTenant string
	GmailEndpoint   string // Overrides the Gmail API base URL used by the mailbox probe

	Adapters map[providers.Provider]providers.Adapter

	SinkConfig credstore.Config
	Sink       Sink
	Types      *credstore.Types

	Guard         guard.Guard     // Required
	VerifyMailbox bool            // Log the mailbox a fresh token grants access to
	Now           func() time.Time
}

// Coordinator runs the linking flows: OAuth initiate/complete and API-key submission
type Coordinator struct {
	adapters    map[providers.Provider]providers.Adapter
	adapterErrs map[providers.Provider]error

	sink    Sink
	sinkErr error
	types   *credstore.Types

	guard         guard.Guard
	verifyMailbox bool
	now           func() time.Time
}

// NewCoordinator creates a coordinator. Missing provider or store settings do not fail
// construction; they surface as a ConfigurationError from the operations that need them
func NewCoordinator(opts *Options) (*Coordinator, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}
	if opts.Guard == nil {
		return nil, fmt.Errorf("a guard is required")
	}

	c := &Coordinator{
		adapters:      make(map[providers.Provider]providers.Adapter),
		adapterErrs:   make(map[providers.Provider]error),
		types:         opts.Types,
		guard:         opts.Guard,
		verifyMailbox: opts.VerifyMailbox,
		now:           opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.types == nil {
		c.types = credstore.NewTypes(nil)
	}

	// Build adapters
	var googleOpts []providers.GoogleOption
	if opts.GmailEndpoint != "" {
		googleOpts = append(googleOpts, providers.WithGmailEndpoint(opts.GmailEndpoint))
	}
	if a, err := providers.NewGoogleAdapter(opts.Google, googleOpts...); err != nil {
		c.adapterErrs[providers.Gmail] = err
	} else {
		c.adapters[providers.Gmail] = a
	}

	if a, err := providers.NewMicrosoftAdapter(opts.Microsoft, opts.MicrosoftTenant); err != nil {
		c.adapterErrs[providers.Outlook] = err
	} else {
		c.adapters[providers.Outlook] = a
	}

	for p, a := range opts.Adapters {
		c.adapters[p] = a
		delete(c.adapterErrs, p)
	}

	// Build the credential store client
	if opts.Sink != nil {
		c.sink = opts.Sink
	} else if client, err := credstore.NewClient(opts.SinkConfig); err != nil {
		c.sinkErr = err
	} else {
		c.sink = client
	}

	for p, err := range c.adapterErrs {
		log.Printf("[FLOW]: %s is unavailable: %v", p.Label(), err)
	}
	if c.sinkErr != nil {
		log.Printf("[FLOW]: Credential store is unavailable: %v", c.sinkErr)
	}

	return c, nil
}

// Status reports which outbound dependencies are configured
func (c *Coordinator) Status() ServiceStatus {
	return ServiceStatus{
		N8N:       c.sinkErr == nil,
		Google:    c.adapters[providers.Gmail] != nil,
		Microsoft: c.adapters[providers.Outlook] != nil,
	}
}

// Guard returns the duplicate-submission guard the coordinator marks requests in
func (c *Coordinator) Guard() guard.Guard {
	return c.guard
}

/** ---- INITIATE ---- */

// Initiate starts an OAuth flow and returns the provider's authorization URL. It performs no network call
func (c *Coordinator) Initiate(provider, displayName, email string) (string, error) {
	p, err := providers.ParseOAuth(provider)
	if err != nil {
		return "", &Error{Stage: StageInitiated, Err: err}
	}

	adapter, err := c.adapter(p)
	if err != nil {
		return "", &Error{Stage: StageInitiated, Err: err}
	}

	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(email) == "" {
		return "", &Error{Stage: StageInitiated, Err: &linkerr.ValidationError{Field: "name", Message: "Name and email are required"}}
	}

	encoded, err := flowstate.Encode(flowstate.New(p, displayName, email, c.now()))
	if err != nil {
		return "", &Error{Stage: StageInitiated, Err: fmt.Errorf("failed to encode state: %w", err)}
	}

	log.Printf("[FLOW]: Starting %s OAuth for %s <%s>", p, displayName, email)
	return adapter.AuthorizationURL(encoded), nil
}

/** ---- COMPLETE ---- */

// Complete finishes an OAuth flow: it decodes the state, exchanges the code and stores the
// resulting credential. A request id seen before short-circuits into a synthetic success, and the
// id is released again when a later step fails so a corrected retry can run
func (c *Coordinator) Complete(ctx context.Context, req CompleteRequest) (*Result, error) {
	flowID := uuid.NewString()
	stage := StageCodeReceived

	// Short-circuit duplicates before doing any work
	if req.RequestID != "" {
		marked, err := c.guard.IsMarked(ctx, req.RequestID)
		if err != nil {
			return nil, &Error{Stage: stage, Err: fmt.Errorf("failed to check request id: %w", err)}
		}
		if marked {
			log.Printf("[FLOW %s]: Request %s already processed, skipping", flowID, req.RequestID)
			return c.duplicate(req, nil), nil
		}
	}

	log.Printf("[FLOW %s]: Processing callback (code: %s, state: %s, request_id: %s)", flowID, presence(req.Code), presence(req.State), req.RequestID)

	state, err := flowstate.Decode(req.State)
	if err != nil {
		log.Printf("[FLOW %s]: %v", flowID, err)
		return nil, &Error{Stage: stage, Err: err}
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, &Error{Stage: stage, Err: &linkerr.ValidationError{Field: "code", Message: "Missing authorization code"}}
	}
	c.compareForwarded(flowID, req, state)

	// Everything must be configured before the request id is marked
	adapter, err := c.adapter(state.Provider)
	if err != nil {
		return nil, &Error{Stage: stage, Err: err}
	}
	if c.sinkErr != nil {
		return nil, &Error{Stage: stage, Err: c.sinkErr}
	}

	// Mark before any network I/O so a concurrent duplicate cannot race in
	if req.RequestID != "" {
		ok, err := c.guard.TryMark(ctx, req.RequestID)
		if err != nil {
			return nil, &Error{Stage: stage, Err: fmt.Errorf("failed to mark request id: %w", err)}
		}
		if !ok {
			log.Printf("[FLOW %s]: Request %s is already being processed, skipping", flowID, req.RequestID)
			return c.duplicate(req, &state), nil
		}
	}

	tokens, err := adapter.ExchangeCode(ctx, req.Code)
	if err != nil {
		c.release(ctx, flowID, req.RequestID)
		return nil, &Error{Stage: stage, Err: err}
	}
	stage = StageTokenExchanged
	c.probeMailbox(ctx, flowID, adapter, tokens, state.Email)

	clientID, clientSecret := adapter.ClientCredentials()
	record := credstore.NewOAuthRecord(state.Provider, c.types.For(state.Provider), clientID, clientSecret, tokens, state.DisplayName, state.Email)

	stored, err := c.sink.Submit(ctx, record)
	if err != nil {
		c.release(ctx, flowID, req.RequestID)
		return nil, &Error{Stage: stage, Err: err}
	}

	stage = StageCredentialStored
	log.Printf("[FLOW %s]: %s linked for %s <%s> (stage: %s, credential: %s)", flowID, state.Provider, state.DisplayName, state.Email, stage, stored.ID)

	return &Result{
		Provider:     state.Provider,
		DisplayName:  state.DisplayName,
		Email:        state.Email,
		CredentialID: stored.ID,
		Stage:        StageCompleted,
	}, nil
}

/** ---- API KEYS ---- */

// SaveAPIKey stores a static secret for an API-key provider
func (c *Coordinator) SaveAPIKey(ctx context.Context, req APIKeyRequest) (*Result, error) {
	p, err := providers.ParseAPIKey(req.Provider)
	if err != nil {
		return nil, err
	}

	var secret string
	switch p {
	case providers.HubSpot:
		if secret = strings.TrimSpace(req.APIKey); secret == "" {
			return nil, &linkerr.ValidationError{Field: "apiKey", Message: "HubSpot API key required"}
		}
	case providers.Streak:
		if secret = strings.TrimSpace(req.Token); secret == "" {
			return nil, &linkerr.ValidationError{Field: "token", Message: "Streak API token required"}
		}
	}

	if c.sinkErr != nil {
		return nil, c.sinkErr
	}

	record, err := credstore.NewAPIKeyRecord(p, c.types.For(p), secret, req.DisplayName, req.Email)
	if err != nil {
		return nil, err
	}

	log.Printf("[FLOW]: Saving %s credentials for %s <%s>", p, req.DisplayName, req.Email)

	stored, err := c.sink.Submit(ctx, record)
	if err != nil {
		return nil, err
	}

	return &Result{
		Provider:     p,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		CredentialID: stored.ID,
		Stage:        StageCompleted,
	}, nil
}

/** ---- HELPERS ---- */

// adapter returns the configured adapter for a provider
func (c *Coordinator) adapter(p providers.Provider) (providers.Adapter, error) {
	if a, ok := c.adapters[p]; ok {
		return a, nil
	}
	if err, ok := c.adapterErrs[p]; ok {
		return nil, err
	}
	return nil, &linkerr.ConfigurationError{Component: p.Label() + " OAuth"}
}

// duplicate builds the synthetic success returned for an already processed request. Valid
// forwarded display data is echoed back; the decoded state fills in whatever is missing or invalid
func (c *Coordinator) duplicate(req CompleteRequest, state *flowstate.State) *Result {
	result := &Result{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Duplicate:   true,
		Stage:       StageCompleted,
	}
	if p, err := providers.ParseOAuth(req.Provider); err == nil {
		result.Provider = p
	}

	if state == nil && (result.Provider == "" || result.DisplayName == "" || result.Email == "") {
		if decoded, err := flowstate.Decode(req.State); err == nil {
			state = &decoded
		}
	}

	if state != nil {
		if result.Provider == "" {
			result.Provider = state.Provider
		}
		if result.DisplayName == "" {
			result.DisplayName = state.DisplayName
		}
		if result.Email == "" {
			result.Email = state.Email
		}
	}

	return result
}

// compareForwarded logs forwarded display data that disagrees with the decoded state. The state wins
func (c *Coordinator) compareForwarded(flowID string, req CompleteRequest, state flowstate.State) {
	if req.Provider != "" && !strings.EqualFold(req.Provider, state.Provider.String()) {
		log.Printf("[FLOW %s]: Warning, forwarded provider '%s' differs from state provider '%s'", flowID, req.Provider, state.Provider)
	}
	if req.DisplayName != "" && req.DisplayName != state.DisplayName {
		log.Printf("[FLOW %s]: Warning, forwarded name differs from state name, using state", flowID)
	}
	if req.Email != "" && req.Email != state.Email {
		log.Printf("[FLOW %s]: Warning, forwarded email differs from state email, using state", flowID)
	}
}

// release unmarks a request id after a failed step
func (c *Coordinator) release(ctx context.Context, flowID, requestID string) {
	if requestID == "" {
		return
	}

	// Release even when the request context is already done
	if err := c.guard.Unmark(context.WithoutCancel(ctx), requestID); err != nil {
		log.Printf("[FLOW %s]: Failed to release request %s: %v", flowID, requestID, err)
		return
	}
	log.Printf("[FLOW %s]: Released request %s after failure", flowID, requestID)
}

// probeMailbox logs the mailbox the token grants access to. Failures are never fatal
func (c *Coordinator) probeMailbox(ctx context.Context, flowID string, adapter providers.Adapter, tokens *providers.TokenSet, email string) {
	if !c.verifyMailbox {
		return
	}

	prober, ok := adapter.(providers.MailboxProber)
	if !ok {
		return
	}

	mailbox, err := prober.Mailbox(ctx, tokens)
	if err != nil {
		log.Printf("[FLOW %s]: Mailbox probe failed: %v", flowID, err)
		return
	}

	if !strings.EqualFold(mailbox, email) {
		log.Printf("[FLOW %s]: Warning, token grants access to %s but the user entered %s", flowID, mailbox, email)
		return
	}
	log.Printf("[FLOW %s]: Mailbox verified: %s", flowID, mailbox)
}

// presence renders a value as Present/Missing for logs
func presence(s string) string {
	if s == "" {
		return "Missing"
	}
	return "Present"
}

// StageOf returns the stage an error was raised at, or StageFailed when unknown
func StageOf(err error) Stage {
	var flowErr *Error
	if errors.As(err, &flowErr) {
		return flowErr.Stage
	}
	return StageFailed
}
