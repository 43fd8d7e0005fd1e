package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaycore/reactor/pkg/devtools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateRejectsHTTPTransportWithoutHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = TransportHTTP
	cfg.HTTPHost = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRequiresTokenWhenAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAuth = true
	cfg.AuthToken = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_DefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestNew_RejectsNilConfigAndDevTools(t *testing.T) {
	_, err := New(nil, devtools.New())
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestNew_ConstructsServerWithRegisteredResourcesAndTools(t *testing.T) {
	s, err := New(DefaultConfig(), devtools.New())
	require.NoError(t, err)
	assert.NotNil(t, s.Store())
}

func TestSubscriptionManager_SubscribeIsIdempotentPerClientAndURI(t *testing.T) {
	sm := NewSubscriptionManager(2)
	id1, err := sm.Subscribe("client-1", "reactor://state/snapshot")
	require.NoError(t, err)
	id2, err := sm.Subscribe("client-1", "reactor://state/snapshot")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, []string{"client-1"}, sm.ClientsFor("reactor://state/snapshot"))
}

func TestSubscriptionManager_EnforcesPerClientCap(t *testing.T) {
	sm := NewSubscriptionManager(1)
	_, err := sm.Subscribe("client-1", "reactor://state/snapshot")
	require.NoError(t, err)
	_, err = sm.Subscribe("client-1", "reactor://events/log")
	assert.Error(t, err)
}

func TestSubscriptionManager_UnsubscribeRemovesClient(t *testing.T) {
	sm := NewSubscriptionManager(5)
	_, err := sm.Subscribe("client-1", "reactor://state/snapshot")
	require.NoError(t, err)
	sm.Unsubscribe("client-1", "reactor://state/snapshot")
	assert.Empty(t, sm.ClientsFor("reactor://state/snapshot"))
}

func TestAuthHandler_RejectsMissingOrWrongToken(t *testing.T) {
	auth, err := NewAuthHandler("secret", true)
	require.NoError(t, err)

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_DisabledPassesEverythingThrough(t *testing.T) {
	auth, err := NewAuthHandler("", false)
	require.NoError(t, err)

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_RejectsRequestsBeyondBurst(t *testing.T) {
	rl, err := NewRateLimiter(1)
	require.NoError(t, err)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
