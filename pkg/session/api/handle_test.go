package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
)

type fixture struct {
	router chi.Router
	repo   *session.InMemoryRepository
	web    *session.Service
	mobile *session.MobileService
}

func newFixture() *fixture {
	repo := session.NewInMemoryRepository()
	cookies := session.NewCookieManager(true, false)
	cfg := session.DefaultConfig()
	web := session.NewService(repo, cookies, cfg)
	mobile := session.NewMobileService(repo, cookies, cfg)

	handle := NewHandle(WithSessionService(web), WithMobileService(mobile))

	r := chi.NewRouter()
	r.Route("/api/mobile", handle.MobileRoutes)
	r.Group(func(r chi.Router) {
		r.Use(session.RequireAuth(web, mobile))
		r.Route("/api", handle.ProtectedRoutes)
	})
	return &fixture{router: r, repo: repo, web: web, mobile: mobile}
}

func identityFor(role account.Role) session.Identity {
	return session.Identity{AccountID: uuid.New(), Email: string(role) + "@example.com", Role: role}
}

func TestGetMe(t *testing.T) {
	f := newFixture()
	identity := identityFor(account.RoleClient)
	token, err := f.web.Create(context.Background(), nil, identity, "", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.WebTokenCookie, Value: token})
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, identity.AccountID, body.AccountID)
	assert.Equal(t, identity.Email, body.Email)
	assert.Equal(t, "client", body.Role)

	// No credentials: uniform 401.
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostRefresh(t *testing.T) {
	f := newFixture()
	pair, err := f.mobile.Create(context.Background(), nil, identityFor(account.RoleClient))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mobile/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, session.ValidTokenFormat(body.AccessToken))
	assert.NotEqual(t, pair.AccessToken, body.AccessToken)

	// The new access token authenticates.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture()
	pair, err := f.mobile.Create(context.Background(), nil, identityFor(account.RoleClient))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mobile/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostMobileLogout(t *testing.T) {
	f := newFixture()
	pair, err := f.mobile.Create(context.Background(), nil, identityFor(account.RoleClient))
	require.NoError(t, err)
	require.Equal(t, 2, f.repo.Len())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mobile/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.AddCookie(&http.Cookie{Name: session.MobileRefreshCookie, Value: pair.RefreshToken})
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.repo.Len())
}

func TestSessionListAndRevoke(t *testing.T) {
	f := newFixture()
	identity := identityFor(account.RoleClient)

	token, err := f.web.Create(context.Background(), nil, identity, "10.0.0.1", "tests/1.0")
	require.NoError(t, err)
	_, err = f.mobile.Create(context.Background(), nil, identity)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: session.WebTokenCookie, Value: token})
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var listed []sessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 3)

	channels := make(map[string]int)
	for _, s := range listed {
		channels[s.Channel]++
	}
	assert.Equal(t, 1, channels["web"])
	assert.Equal(t, 1, channels["mobile"])
	assert.Equal(t, 1, channels["mobile-refresh"])

	// Revoking kills every session, including the caller's.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: session.WebTokenCookie, Value: token})
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.repo.Len())
}
