package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/postpilothq/postpilot/internal/authflow"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/credits"
	"github.com/postpilothq/postpilot/internal/http/controllers"
	"github.com/postpilothq/postpilot/internal/http/dto"
	"github.com/postpilothq/postpilot/internal/http/middlewares"
	"github.com/postpilothq/postpilot/internal/oauth/exchange"
	"github.com/postpilothq/postpilot/internal/posts"
	"github.com/postpilothq/postpilot/internal/providers"
	"github.com/postpilothq/postpilot/internal/publish"
	"github.com/postpilothq/postpilot/internal/rate"
)

var jwtSecret = []byte("test-secret")

// env arma la app completa contra un proveedor OAuth falso, con stores en
// memoria y un publisher controlable.
type env struct {
	api       *httptest.Server
	credStore *credentials.MemoryStore
	postStore *posts.MemoryStore
	publish   *stubPublisher
}

type stubPublisher struct {
	err error
}

func (s *stubPublisher) Publish(_ context.Context, _ string, p posts.Post) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ext-" + p.ID, nil
}

func newEnv(t *testing.T, rateSet *rate.CategorySet) *env {
	t.Helper()

	// Proveedor OAuth falso: token + identidad con la forma de twitter.
	providerMux := http.NewServeMux()
	providerMux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-e2e", "refresh_token": "rt-e2e", "expires_in": 7200,
		})
	})
	providerMux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "acct-e2e"}})
	})
	providerSrv := httptest.NewServer(providerMux)
	t.Cleanup(providerSrv.Close)

	registry := providers.NewRegistryWithSpecs([]providers.Spec{{
		Name:         "twitter",
		AuthURL:      providerSrv.URL + "/authorize",
		TokenURL:     providerSrv.URL + "/token",
		IdentityURL:  providerSrv.URL + "/identity",
		Scopes:       []string{"tweet.write"},
		RequiresPKCE: true,
		AuthViaBasic: true,
	}}, map[string]providers.Credentials{
		"twitter": {ClientID: "cid", ClientSecret: "csec"},
	})

	credStore := credentials.NewMemoryStore()
	postStore := posts.NewMemoryStore()
	flow := authflow.NewManager(authflow.ManagerDeps{
		Registry: registry,
		States:   authflow.NewMemoryStore(),
		BaseURL:  "https://api.postpilot.test",
	})
	xchg := exchange.New(registry, "https://api.postpilot.test")

	pub := &stubPublisher{}
	dispatcher := publish.NewDispatcher(publish.DispatcherDeps{
		Resolver:  credentials.NewResolver(credStore),
		Refresher: credentials.NewRefresher(credStore, xchg, 5*time.Minute),
		Publishers: map[providers.Platform]publish.Publisher{
			providers.PlatformTwitter: pub,
		},
	})

	ctrls := controllers.New(controllers.Deps{
		Registry:   registry,
		Flow:       flow,
		Exchange:   xchg,
		Creds:      credStore,
		Posts:      postStore,
		Dispatcher: dispatcher,
		Gate:       credits.AllowAll{},
	})

	handler := New(Deps{
		Controllers: ctrls,
		Auth:        middlewares.AuthConfig{Secret: jwtSecret},
		Rate:        rateSet,
	})
	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	return &env{api: api, credStore: credStore, postStore: postStore, publish: pub}
}

func signToken(t *testing.T, tenantID, orgID string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": tenantID, "exp": time.Now().Add(time.Hour).Unix()}
	if orgID != "" {
		claims["org_id"] = orgID
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	require.NoError(t, err)
	return raw
}

func (e *env) request(t *testing.T, method, path, token string, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.api.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestConnectAndPublishFlow(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	// 1. authorize
	resp, body := e.request(t, http.MethodGet, "/oauth/twitter/authorize", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var auth dto.AuthorizeResponse
	require.NoError(t, json.Unmarshal(body, &auth))

	authURL, err := url.Parse(auth.AuthorizationURL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	// 2. callback del proveedor
	cb := "/oauth/twitter/callback?state=" + url.QueryEscape(state) + "&code=code-1"
	resp, body = e.request(t, http.MethodGet, cb, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var conn dto.CallbackResponse
	require.NoError(t, json.Unmarshal(body, &conn))
	require.Equal(t, "twitter", conn.Provider)
	require.Equal(t, "acct-e2e", conn.AccountID)
	require.False(t, conn.IdentityUnverified)

	// 3. replay del callback: el state ya fue consumido
	resp, body = e.request(t, http.MethodGet, cb, "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "INVALID_STATE")

	// 4. publicar ya mismo
	resp, body = e.request(t, http.MethodPost, "/publish", token,
		`{"platform":"twitter","content":{"body":"hola mundo"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var post dto.PostResponse
	require.NoError(t, json.Unmarshal(body, &post))
	require.Equal(t, "published", post.Status)
	require.Equal(t, "ext-"+post.ID, post.ProviderPostID)

	// 5. consultar el post
	resp, body = e.request(t, http.MethodGet, "/posts/"+post.ID, token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 6. otro tenant no lo ve
	other := signToken(t, "tenant-2", "")
	resp, _ = e.request(t, http.MethodGet, "/posts/"+post.ID, other, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishWithoutConnectionIs404(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	resp, body := e.request(t, http.MethodPost, "/publish", token,
		`{"platform":"twitter","content":{"body":"hola"}}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, string(body), "NO_ACTIVE_CREDENTIAL")
}

func TestPublishInvalidContentIs422(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	long := strings.Repeat("a", 300)
	resp, body := e.request(t, http.MethodPost, "/publish", token,
		`{"platform":"twitter","content":{"body":"`+long+`"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, string(body), "CONTENT_INVALID")
}

func TestScheduledPublishIsAccepted(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	at := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	resp, body := e.request(t, http.MethodPost, "/publish", token,
		`{"platform":"twitter","content":{"body":"futuro"},"scheduled_at":"`+at+`"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var post dto.PostResponse
	require.NoError(t, json.Unmarshal(body, &post))
	require.Equal(t, "scheduled", post.Status)
}

func TestAuthIsRequired(t *testing.T) {
	e := newEnv(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/oauth/twitter/authorize"},
		{http.MethodPost, "/publish"},
		{http.MethodGet, "/oauth/providers"},
	} {
		resp, body := e.request(t, tc.method, tc.path, "", "")
		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "%s %s: %s", tc.method, tc.path, body)
	}

	// Un token firmado con otro secreto tampoco pasa.
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).
		SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	resp, _ := e.request(t, http.MethodGet, "/oauth/providers", bad, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimitReturns429WithHeaders(t *testing.T) {
	limits := map[rate.Category]rate.Limit{
		rate.CategoryAuth:    {Max: 2, Window: time.Minute},
		rate.CategoryDefault: {Max: 100, Window: time.Minute},
	}
	set := rate.NewCategorySet(limits, func(c rate.Category, l rate.Limit) rate.Limiter {
		return rate.NewMemoryLimiter(l.Max, l.Window)
	})

	e := newEnv(t, set)
	token := signToken(t, "tenant-1", "")

	for i := 0; i < 2; i++ {
		resp, body := e.request(t, http.MethodGet, "/oauth/twitter/authorize", token, "")
		require.Equalf(t, http.StatusOK, resp.StatusCode, "hit %d: %s", i+1, body)
	}

	resp, body := e.request(t, http.MethodGet, "/oauth/twitter/authorize", token, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Contains(t, string(body), "RATE_LIMITED")
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t, nil)

	resp, _ := e.request(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProvidersEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	resp, body := e.request(t, http.MethodGet, "/oauth/providers", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Providers []dto.ProviderInfo `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Providers, 1)
	require.Equal(t, "twitter", out.Providers[0].Name)
	require.Contains(t, out.Providers[0].Platforms, "twitter")
}

func TestDisconnect(t *testing.T) {
	e := newEnv(t, nil)
	token := signToken(t, "tenant-1", "")

	// Sin conexión previa: 404.
	resp, _ := e.request(t, http.MethodDelete, "/oauth/twitter", token, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err := e.credStore.Save(context.Background(), credentials.Record{
		OwnerScope:  credentials.ScopeUser,
		OwnerID:     "tenant-1",
		Provider:    "twitter",
		AccessToken: "at",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	resp, _ = e.request(t, http.MethodDelete, "/oauth/twitter", token, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err = e.credStore.FindActive(context.Background(), credentials.ScopeUser, "tenant-1", "twitter")
	require.True(t, errors.Is(err, credentials.ErrNoActiveCredential))
}
