package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"

	guard_store "github.com/ethanbaker/credlink/internal/stores/guard"
	"github.com/ethanbaker/credlink/pkg/credstore"
	"github.com/ethanbaker/credlink/pkg/flow"
	"github.com/ethanbaker/credlink/pkg/guard"
	"github.com/ethanbaker/credlink/pkg/providers"
	"github.com/ethanbaker/credlink/pkg/sdk"
	"github.com/ethanbaker/credlink/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testBackend runs the API against stub provider and store servers
type testBackend struct {
	engine      *gin.Engine
	store       *httptest.Server
	server      *httptest.Server
	client      *sdk.Client
	coordinator *flow.Coordinator

	tokenCalls  atomic.Int32
	storeCalls  atomic.Int32
	storeStatus atomic.Int32
	lastRecord  atomic.Value
}

func newTestBackend(t *testing.T, apiKey string) *testBackend {
	t.Helper()

	b := &testBackend{}
	b.storeStatus.Store(http.StatusOK)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"AT","refresh_token":"RT","scope":"s","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.storeCalls.Add(1)

		var record map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&record)) {
			b.lastRecord.Store(record)
		}

		w.Header().Set("Content-Type", "application/json")
		status := int(b.storeStatus.Load())
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"message":"credential type is not known"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"cred-7"}`))
	}))
	t.Cleanup(storeServer.Close)
	b.store = storeServer

	settings := &utils.Settings{
		Port:           "0",
		Environment:    "test",
		CORSOrigins:    []string{"http://localhost:3000"},
		SuccessPageURL: "http://localhost:3000/success",
		APIKey:         apiKey,
	}

	coordinator, err := flow.NewCoordinator(&flow.Options{
		Google: providers.Config{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			RedirectURI:  "http://localhost:5000/oauth2callback",
			TokenURL:     tokenServer.URL,
		},
		SinkConfig: credstore.Config{BaseURL: storeServer.URL, APIKey: "n8n-key"},
		Guard:      guard_store.NewInMemoryGuard(guard.DefaultPolicy),
	})
	require.NoError(t, err)

	engine, err := NewEngine(settings, coordinator, GuardMemory)
	require.NoError(t, err)

	b.engine = engine
	b.coordinator = coordinator
	b.server = httptest.NewServer(engine)
	t.Cleanup(b.server.Close)
	b.client = sdk.NewClient(b.server.URL, apiKey)

	return b
}

// startGmail starts a gmail flow and returns the encoded state from the authorization URL
func (b *testBackend) startGmail(t *testing.T) string {
	t.Helper()

	authURL, err := b.client.StartOAuth(context.Background(), "gmail", &sdk.StartOAuthRequest{Name: "Ada", Email: "ada@x.com"})
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "google-client", parsed.Query().Get("client_id"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Equal(t, "consent", parsed.Query().Get("prompt"))

	return parsed.Query().Get("state")
}

func requireResponseError(t *testing.T, err error, status int, message string) {
	t.Helper()

	var respErr *sdk.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, status, respErr.StatusCode)
	if message != "" {
		assert.Equal(t, message, respErr.Message)
	}
}

func TestHealth(t *testing.T) {
	b := newTestBackend(t, "")

	health, err := b.client.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Environment)
	assert.Equal(t, GuardMemory, health.Guard)
	assert.Equal(t, map[string]string{
		"n8n":       sdk.ServiceConfigured,
		"google":    sdk.ServiceConfigured,
		"microsoft": sdk.ServiceNotConfigured,
	}, health.Services)

	// The root path answers too
	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartOAuth(t *testing.T) {
	b := newTestBackend(t, "")

	state := b.startGmail(t)
	assert.NotEmpty(t, state)

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := b.client.StartOAuth(context.Background(), "dropbox", &sdk.StartOAuthRequest{Name: "Ada", Email: "ada@x.com"})
		requireResponseError(t, err, http.StatusBadRequest, "Invalid provider: dropbox")
	})

	t.Run("provider not configured", func(t *testing.T) {
		_, err := b.client.StartOAuth(context.Background(), "outlook", &sdk.StartOAuthRequest{Name: "Ada", Email: "ada@x.com"})
		requireResponseError(t, err, http.StatusInternalServerError, "")
	})

	t.Run("bad body", func(t *testing.T) {
		w := httptest.NewRecorder()
		b.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/oauth/start/gmail", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Could not parse request body"}`, w.Body.String())
	})

	assert.Zero(t, b.tokenCalls.Load())
}

func TestProcessCallback(t *testing.T) {
	b := newTestBackend(t, "")
	state := b.startGmail(t)

	req := &sdk.ProcessCallbackRequest{
		Code:      "auth-code",
		State:     state,
		Provider:  "gmail",
		Name:      "Ada",
		Email:     "ada@x.com",
		RequestID: "req-1",
	}

	res, err := b.client.ProcessCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &sdk.LinkResponse{
		Success:      true,
		Message:      "gmail credentials saved successfully",
		Provider:     "gmail",
		UserInfo:     &sdk.UserInfo{Name: "Ada", Email: "ada@x.com"},
		CredentialID: "cred-7",
	}, res)

	record := b.lastRecord.Load().(map[string]any)
	assert.Equal(t, "Gmail_Ada_ada@x.com", record["name"])

	// A repeated request id does no further work
	res, err = b.client.ProcessCallback(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "gmail credentials already processed", res.Message)
	assert.Equal(t, &sdk.UserInfo{Name: "Ada", Email: "ada@x.com"}, res.UserInfo)
	assert.Equal(t, int32(1), b.tokenCalls.Load())
	assert.Equal(t, int32(1), b.storeCalls.Load())
}

func TestProcessCallbackFailures(t *testing.T) {
	b := newTestBackend(t, "")
	state := b.startGmail(t)

	t.Run("malformed state", func(t *testing.T) {
		_, err := b.client.ProcessCallback(context.Background(), &sdk.ProcessCallbackRequest{Code: "auth-code", State: "not-base64url-json"})
		requireResponseError(t, err, http.StatusBadRequest, "Invalid state parameter")
		assert.Zero(t, b.tokenCalls.Load())
	})

	t.Run("store rejects", func(t *testing.T) {
		b.storeStatus.Store(http.StatusBadRequest)
		defer b.storeStatus.Store(http.StatusOK)

		_, err := b.client.ProcessCallback(context.Background(), &sdk.ProcessCallbackRequest{Code: "auth-code", State: state, RequestID: "req-2"})
		requireResponseError(t, err, http.StatusBadGateway, "credential type is not known")

		// The request id was released
		marked, err := b.coordinator.Guard().IsMarked(context.Background(), "req-2")
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("raw failure body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/oauth/process-callback", nil)
		b.engine.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"success":false,"message":"Could not parse request body"}`, w.Body.String())
	})
}

func TestProcessCallbackRetryable(t *testing.T) {
	b := newTestBackend(t, "")
	state := b.startGmail(t)

	// A rejected credential will be rejected again
	b.storeStatus.Store(http.StatusBadRequest)
	_, err := b.client.ProcessCallback(context.Background(), &sdk.ProcessCallbackRequest{Code: "auth-code", State: state, RequestID: "req-1"})

	var respErr *sdk.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusBadGateway, respErr.StatusCode)
	assert.False(t, respErr.Retryable)

	// An unreachable store may come back
	b.store.Close()
	_, err = b.client.ProcessCallback(context.Background(), &sdk.ProcessCallbackRequest{Code: "auth-code", State: state, RequestID: "req-1"})

	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusGatewayTimeout, respErr.StatusCode)
	assert.Equal(t, "Could not reach n8n API, please try again", respErr.Message)
	assert.True(t, respErr.Retryable)

	marked, err := b.coordinator.Guard().IsMarked(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestOAuthCallbackRedirect(t *testing.T) {
	b := newTestBackend(t, "")
	state := b.startGmail(t)

	tests := []struct {
		name   string
		query  url.Values
		expect url.Values
	}{
		{
			name:  "success",
			query: url.Values{"code": {"auth-code"}, "state": {state}},
			expect: url.Values{
				"provider": {"gmail"},
				"name":     {"Ada"},
				"email":    {"ada@x.com"},
				"status":   {"success"},
			},
		},
		{
			name:   "provider error",
			query:  url.Values{"error": {"access_denied"}},
			expect: url.Values{"status": {"error"}, "message": {"access_denied"}},
		},
		{
			name:   "missing code",
			query:  url.Values{"state": {state}},
			expect: url.Values{"status": {"error"}, "message": {"Missing authorization code"}},
		},
		{
			name:   "malformed state",
			query:  url.Values{"code": {"auth-code"}, "state": {"%%%"}},
			expect: url.Values{"status": {"error"}, "message": {"Invalid state parameter"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			b.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth2callback?"+tt.query.Encode(), nil))

			require.Equal(t, http.StatusFound, w.Code)

			location, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "localhost:3000", location.Host)
			assert.Equal(t, "/success", location.Path)
			assert.Equal(t, tt.expect, location.Query())
		})
	}
}

func TestSaveCredentials(t *testing.T) {
	b := newTestBackend(t, "")

	res, err := b.client.SaveCredentials(context.Background(), "hubspot", &sdk.SaveCredentialsRequest{Name: "Ada", Email: "ada@x.com", APIKey: "pat-1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hubspot credentials saved successfully", res.Message)
	assert.Equal(t, "cred-7", res.CredentialID)

	record := b.lastRecord.Load().(map[string]any)
	assert.Equal(t, "HubSpot_Ada_ada@x.com", record["name"])
	assert.Equal(t, map[string]any{"appToken": "pat-1"}, record["data"])

	_, err = b.client.SaveCredentials(context.Background(), "streak", &sdk.SaveCredentialsRequest{Name: "Ada", Email: "ada@x.com"})
	requireResponseError(t, err, http.StatusBadRequest, "Streak API token required")

	_, err = b.client.SaveCredentials(context.Background(), "dropbox", &sdk.SaveCredentialsRequest{Name: "Ada", Email: "ada@x.com", APIKey: "x"})
	requireResponseError(t, err, http.StatusBadRequest, "Invalid provider: dropbox")
}

func TestReleaseRequest(t *testing.T) {
	b := newTestBackend(t, "admin-key")

	_, err := b.coordinator.Guard().TryMark(context.Background(), "req-9")
	require.NoError(t, err)

	res, err := b.client.ReleaseRequest(context.Background(), "req-9")
	require.NoError(t, err)
	assert.Equal(t, &sdk.ReleaseResponse{RequestID: "req-9", Released: true}, res)

	marked, err := b.coordinator.Guard().IsMarked(context.Background(), "req-9")
	require.NoError(t, err)
	assert.False(t, marked)

	// Wrong key
	_, err = sdk.NewClient(b.server.URL, "wrong").ReleaseRequest(context.Background(), "req-9")
	assert.Error(t, err)
}

func TestReleaseRequestDisabledWithoutKey(t *testing.T) {
	b := newTestBackend(t, "")

	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/oauth/requests/req-9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
