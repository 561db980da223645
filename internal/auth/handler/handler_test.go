package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mollybeach/secure-user-api/internal/auth"
	"github.com/mollybeach/secure-user-api/internal/auth/credentials"
	"github.com/mollybeach/secure-user-api/internal/auth/linker"
	"github.com/mollybeach/secure-user-api/internal/auth/provider"
	"github.com/mollybeach/secure-user-api/internal/auth/token"
	"github.com/mollybeach/secure-user-api/internal/middleware"
	"github.com/mollybeach/secure-user-api/internal/user"
)

// stubProvider satisfies provider.OAuthProvider without talking to anyone.
type stubProvider struct {
	profile *auth.ExternalProfile
	err     error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://example.com/authorize?state=" + state
}

func (s *stubProvider) ExchangeCode(_ context.Context, _, _ string) (*auth.ExternalProfile, error) {
	return s.profile, s.err
}

type testEnv struct {
	router *gin.Engine
	store  *user.MemoryStore
	tokens *token.Service
	stub   *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := user.NewMemoryStore()

	hasher, err := credentials.NewHasher(4)
	require.NoError(t, err)

	tokens, err := token.NewService([]byte("test-signing-secret"))
	require.NoError(t, err)

	creds, err := credentials.NewService(store, hasher, tokens, time.Hour)
	require.NoError(t, err)

	stub := &stubProvider{}
	registry := provider.NewRegistry(stub)

	h := NewHandler(registry, creds, linker.New(store), tokens, nil, time.Hour)
	gate := middleware.NewAuthGate(tokens, store, nil)

	router := gin.New()
	h.RegisterRoutes(router)

	api := router.Group("/api/users")
	api.Use(middleware.GinRequireAuth(gate))
	api.GET("/profile", h.Profile)

	return &testEnv{
		router: router,
		store:  store,
		tokens: tokens,
		stub:   stub,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created user.Public
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.postJSON(t, "/api/auth/login", gin.H{
		"email":    "alice@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp struct {
		Token string      `json:"token"`
		User  user.Public `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, created.ID, loginResp.User.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	profileRec := httptest.NewRecorder()
	env.router.ServeHTTP(profileRec, req)

	require.Equal(t, http.StatusOK, profileRec.Code)
	var profile user.Public
	require.NoError(t, json.Unmarshal(profileRec.Body.Bytes(), &profile))
	assert.Equal(t, created.ID, profile.ID)
}

func TestRegisterErrorStatuses(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same email again: conflict.
	rec = env.postJSON(t, "/api/auth/register", gin.H{
		"username": "alice2",
		"email":    "alice@x.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Shape failures: bad request.
	rec = env.postJSON(t, "/api/auth/register", gin.H{
		"username": "ab",
		"email":    "a@x.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, body := range []gin.H{
		{"email": "alice@x.com", "password": "wrong"},
		{"email": "nobody@x.com", "password": "secret1"},
	} {
		rec = env.postJSON(t, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestProfileAuthFailures(t *testing.T) {
	env := newTestEnv(t)

	// No header.
	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong scheme.
	req = httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed")
}

func oauthCallbackRequest(code string) *http.Request {
	req := httptest.NewRequest(
		http.MethodGet,
		"/oauth/callback/stub?state=test-state&code="+code,
		nil,
	)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: pkceCookieName, Value: "test-verifier"})
	return req
}

func TestOAuthCallbackCreatesUserAndIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	env.stub.profile = &auth.ExternalProfile{
		Provider:       "stub",
		ProviderUserID: "42",
		Username:       "octocat",
		Email:          "octo@x.com",
		EmailVerified:  true,
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, oauthCallbackRequest("good-code"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  user.Public `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.SubjectID)

	// Second callback with the same profile resolves to the same user.
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, oauthCallbackRequest("good-code"))
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		User user.Public `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, resp.User.ID, second.User.ID)
}

func TestOAuthLoginSetsFlowCookies(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/login/stub", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	byName := make(map[string]*http.Cookie, len(cookies))
	for _, ck := range cookies {
		byName[ck.Name] = ck
	}

	for _, name := range []string{stateCookieName, pkceCookieName} {
		ck, ok := byName[name]
		require.True(t, ok, "missing cookie %s", name)
		assert.NotEmpty(t, ck.Value)
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
	}

	// The redirect carries the same state the cookie pins to the browser.
	assert.Contains(t, rec.Header().Get("Location"), "state="+byName[stateCookieName].Value)
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/stub?state=evil&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "test-state"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthCallbackIncompleteProfile(t *testing.T) {
	env := newTestEnv(t)
	env.stub.profile = &auth.ExternalProfile{
		Provider:       "stub",
		ProviderUserID: "99",
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, oauthCallbackRequest("good-code"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.stub.err = errors.New("provider unreachable")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, oauthCallbackRequest("bad-code"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/oauth/login/nope", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	// Without a denylist logout still succeeds; it is a client-side
	// discard.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
