package oauth_module

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/ethanbaker/credlink/pkg/flow"
	"github.com/ethanbaker/credlink/pkg/linkerr"
	"github.com/ethanbaker/credlink/pkg/sdk"
)

// OAuthService exposes the flow coordinator to the OAuth routes
type OAuthService struct {
	coordinator    *flow.Coordinator
	successPageURL *url.URL
}

var oauthService *OAuthService

/** ---- INIT ---- */

// Init creates the OAuth service. successPageURL is where the direct callback sends the browser
func Init(coordinator *flow.Coordinator, successPageURL string) error {
	if coordinator == nil {
		return fmt.Errorf("coordinator cannot be nil")
	}

	page, err := url.Parse(successPageURL)
	if err != nil || page.Scheme == "" || page.Host == "" {
		return fmt.Errorf("invalid success page url '%s'", successPageURL)
	}

	oauthService = &OAuthService{
		coordinator:    coordinator,
		successPageURL: page,
	}
	return nil
}

/** ---- SERVICE METHODS ---- */

// Start starts a flow for a provider
func (s *OAuthService) Start(provider string, req *sdk.StartOAuthRequest) sdk.LinkResponse {
	authURL, err := s.coordinator.Initiate(provider, req.Name, req.Email)
	if err != nil {
		log.Printf("[OAUTH]: %s OAuth start error at stage %s: %v", provider, flow.StageOf(err), err)
		return failure(err)
	}

	res := sdk.NewLinkSuccess("")
	res.AuthURL = authURL
	return res
}

// Process completes a flow forwarded by the browser client
func (s *OAuthService) Process(ctx context.Context, req *sdk.ProcessCallbackRequest) sdk.LinkResponse {
	result, err := s.coordinator.Complete(ctx, flow.CompleteRequest{
		Code:        req.Code,
		State:       req.State,
		RequestID:   req.RequestID,
		Provider:    req.Provider,
		DisplayName: req.Name,
		Email:       req.Email,
	})
	if err != nil {
		log.Printf("[OAUTH]: OAuth processing error at stage %s: %v", flow.StageOf(err), err)
		return failure(err)
	}

	res := sdk.NewLinkSuccess(result.Message())
	res.Provider = result.Provider.String()
	res.UserInfo = &sdk.UserInfo{Name: result.DisplayName, Email: result.Email}
	res.CredentialID = result.CredentialID
	return res
}

// Callback completes a flow from a direct provider redirect and returns where to send the browser
func (s *OAuthService) Callback(ctx context.Context, code, state, providerError string) string {
	if providerError != "" {
		log.Printf("[OAUTH]: Provider returned an error: %s", providerError)
		return s.redirectURL(url.Values{"status": {"error"}, "message": {providerError}})
	}

	if code == "" || state == "" {
		log.Println("[OAUTH]: Callback is missing code or state")
		return s.redirectURL(url.Values{"status": {"error"}, "message": {"Missing authorization code"}})
	}

	result, err := s.coordinator.Complete(ctx, flow.CompleteRequest{Code: code, State: state})
	if err != nil {
		log.Printf("[OAUTH]: OAuth callback failed at stage %s: %v", flow.StageOf(err), err)
		return s.redirectURL(url.Values{"status": {"error"}, "message": {linkerr.Message(err)}})
	}

	return s.redirectURL(url.Values{
		"provider": {result.Provider.String()},
		"name":     {result.DisplayName},
		"email":    {result.Email},
		"status":   {"success"},
	})
}

// Release unmarks a request id, reporting whether it was marked
func (s *OAuthService) Release(ctx context.Context, requestID string) (bool, error) {
	g := s.coordinator.Guard()

	marked, err := g.IsMarked(ctx, requestID)
	if err != nil {
		return false, err
	}
	if err := g.Unmark(ctx, requestID); err != nil {
		return false, err
	}

	log.Printf("[OAUTH]: Request %s released manually (was marked: %t)", requestID, marked)
	return marked, nil
}

/** ---- HELPERS ---- */

// redirectURL adds the query values to the success page URL, keeping any query it already has
func (s *OAuthService) redirectURL(values url.Values) string {
	target := *s.successPageURL

	query := target.Query()
	for key, vals := range values {
		query[key] = vals
	}
	target.RawQuery = query.Encode()

	return target.String()
}

// failure converts an error into the failed linking response
func failure(err error) sdk.LinkResponse {
	res := sdk.NewLinkFailure(linkerr.HTTPStatus(err), linkerr.Message(err))
	res.Retryable = linkerr.Retryable(err)
	return res
}
