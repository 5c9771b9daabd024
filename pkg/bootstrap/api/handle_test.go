package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/bootstrap"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/totp"
)

type fastHasher struct{}

func (fastHasher) Hash(pass string) (string, error) {
	return "hashed:" + pass, nil
}

func (fastHasher) Verify(pass, hashed string) (bool, error) {
	return "hashed:"+pass == hashed, nil
}

func newTestRouter() (chi.Router, *account.InMemoryRepository) {
	repo := account.NewInMemoryRepository()
	handle := NewHandle(WithService(bootstrap.NewService(repo, fastHasher{})))
	r := chi.NewRouter()
	r.Route("/bootstrap", handle.Routes)
	return r, repo
}

func postSetup(t *testing.T, r chi.Router, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bootstrap/setup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestSetupInitStep(t *testing.T) {
	r, _ := newTestRouter()

	rec := postSetup(t, r, map[string]string{"step": "init", "email": "admin@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body initResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Secret)
	assert.Contains(t, body.ProvisioningURI, "otpauth://totp/")
}

func TestSetupVerifyStep(t *testing.T) {
	r, repo := newTestRouter()

	rec := postSetup(t, r, map[string]string{"step": "init", "email": "admin@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var initBody initResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &initBody))

	code, err := totp.GenerateCode(initBody.Secret, time.Now())
	require.NoError(t, err)

	rec = postSetup(t, r, map[string]string{
		"step":     "verify",
		"email":    "admin@example.com",
		"username": "admin",
		"password": "Adm1n-Setup-Pass",
		"secret":   initBody.Secret,
		"code":     code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The verify response confirms without echoing the secret.
	assert.NotContains(t, rec.Body.String(), initBody.Secret)
	var verifyBody verifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verifyBody))
	assert.True(t, verifyBody.Success)
	assert.Equal(t, "admin@example.com", verifyBody.Email)

	admin, err := repo.FindAdmin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
}

func TestSetupRejectsUnknownStep(t *testing.T) {
	r, _ := newTestRouter()

	rec := postSetup(t, r, map[string]string{"step": "finish"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postSetup(t, r, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetupConflictAfterConfigured(t *testing.T) {
	r, repo := newTestRouter()

	_, err := repo.CreateAdminIfAbsent(context.Background(), account.CreateAccountRequest{
		Email: "admin@example.com", Username: "admin", PasswordHash: "hash", Role: account.RoleAdmin,
	})
	require.NoError(t, err)

	rec := postSetup(t, r, map[string]string{"step": "init", "email": "second@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "already configured")
}
