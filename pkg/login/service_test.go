package login

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/password"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/totp"
)

// fastHasher sidesteps bcrypt cost in tests.
type fastHasher struct{}

func (fastHasher) Hash(pass string) (string, error) {
	return "hashed:" + pass, nil
}

func (fastHasher) Verify(pass, hashed string) (bool, error) {
	return "hashed:"+pass == hashed, nil
}

type fixture struct {
	accounts *account.InMemoryRepository
	sessions *session.InMemoryRepository
	web      *session.Service
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := account.NewInMemoryRepository()
	sessions := session.NewInMemoryRepository()
	cookies := session.NewCookieManager(true, false)
	cfg := session.DefaultConfig()
	web := session.NewService(sessions, cookies, cfg)
	mobile := session.NewMobileService(sessions, cookies, cfg)
	return &fixture{
		accounts: accounts,
		sessions: sessions,
		web:      web,
		service:  NewService(accounts, fastHasher{}, web, mobile),
	}
}

func (f *fixture) addClient(t *testing.T, username, email, pass string) *account.Account {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), account.CreateAccountRequest{
		Email:        email,
		Username:     username,
		PasswordHash: "hashed:" + pass,
		Role:         account.RoleClient,
	})
	require.NoError(t, err)
	return acct
}

func (f *fixture) addAdmin(t *testing.T, username, email, pass, secret string) *account.Account {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), account.CreateAccountRequest{
		Email:        email,
		Username:     username,
		PasswordHash: "hashed:" + pass,
		TotpSecret:   secret,
		Role:         account.RoleAdmin,
	})
	require.NoError(t, err)
	return acct
}

func TestLoginSuccessMintsBothChannels(t *testing.T) {
	f := newFixture(t)
	acct := f.addClient(t, "jordan", "jordan@example.com", "s3cretpass")

	result, err := f.service.Login(context.Background(), nil, "jordan", "s3cretpass", "1.2.3.4", "tests/1.0")
	require.NoError(t, err)
	assert.False(t, result.Requires2FA)
	require.NotNil(t, result.Identity)
	assert.Equal(t, acct.ID, result.Identity.AccountID)
	assert.True(t, session.ValidTokenFormat(result.SessionToken))
	require.NotNil(t, result.MobileTokens)

	// One web row plus an access/refresh pair.
	assert.Equal(t, 3, f.sessions.Len())
}

func TestLoginByEmail(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "jordan", "jordan@example.com", "s3cretpass")

	_, err := f.service.Login(context.Background(), nil, "jordan@example.com", "s3cretpass", "", "")
	assert.NoError(t, err)
}

func TestLoginGenericRejection(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "jordan", "jordan@example.com", "s3cretpass")

	// Unknown identifier and wrong password yield the identical error, so
	// responses cannot be used to probe which accounts exist.
	_, unknownErr := f.service.Login(context.Background(), nil, "nobody", "s3cretpass", "", "")
	_, wrongErr := f.service.Login(context.Background(), nil, "jordan", "wrongpass", "", "")

	assert.Equal(t, ErrInvalidCredentials, unknownErr)
	assert.Equal(t, ErrInvalidCredentials, wrongErr)
	assert.Zero(t, f.sessions.Len())
}

func TestLoginAdminRequires2FA(t *testing.T) {
	f := newFixture(t)
	key, err := totp.GenerateSecret("admin@example.com")
	require.NoError(t, err)
	f.addAdmin(t, "admin", "admin@example.com", "adm1npass", key.Secret)

	result, err := f.service.Login(context.Background(), nil, "admin", "adm1npass", "", "")
	require.NoError(t, err)
	assert.True(t, result.Requires2FA)
	assert.Nil(t, result.Identity)
	assert.Empty(t, result.SessionToken)

	// No session of any kind exists until the passcode step.
	assert.Zero(t, f.sessions.Len())
}

func TestVerifyTotpCompletesAdminLogin(t *testing.T) {
	f := newFixture(t)
	key, err := totp.GenerateSecret("admin@example.com")
	require.NoError(t, err)
	acct := f.addAdmin(t, "admin", "admin@example.com", "adm1npass", key.Secret)

	code, err := totp.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)

	result, err := f.service.VerifyTotp(context.Background(), nil, "admin", code, "", "")
	require.NoError(t, err)
	require.NotNil(t, result.Identity)
	assert.Equal(t, acct.ID, result.Identity.AccountID)
	assert.Equal(t, account.RoleAdmin, result.Identity.Role)
	assert.Equal(t, 3, f.sessions.Len())
}

func TestVerifyTotpRejectsBadCode(t *testing.T) {
	f := newFixture(t)
	key, err := totp.GenerateSecret("admin@example.com")
	require.NoError(t, err)
	f.addAdmin(t, "admin", "admin@example.com", "adm1npass", key.Secret)

	_, err = f.service.VerifyTotp(context.Background(), nil, "admin", "000000", "", "")
	assert.True(t, autherrors.IsCode(err, autherrors.ErrCode2FAInvalid))
	assert.Zero(t, f.sessions.Len())
}

func TestVerifyTotpRejectsNonAdmin(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, "jordan", "jordan@example.com", "s3cretpass")

	_, err := f.service.VerifyTotp(context.Background(), nil, "jordan", "123456", "", "")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	acct := f.addClient(t, "jordan", "jordan@example.com", "oldpass99")

	// Mint a few sessions to prove the cascade.
	for i := 0; i < 2; i++ {
		_, err := f.service.Login(context.Background(), nil, "jordan", "oldpass99", "", "")
		require.NoError(t, err)
	}
	require.Equal(t, 6, f.sessions.Len())

	err := f.service.ChangePassword(context.Background(), acct.ID, "oldpass99", "Brand-New-Pass7")
	require.NoError(t, err)
	assert.Zero(t, f.sessions.Len(), "all sessions must be destroyed")

	// Old password no longer works, new one does.
	_, err = f.service.Login(context.Background(), nil, "jordan", "oldpass99", "", "")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = f.service.Login(context.Background(), nil, "jordan", "Brand-New-Pass7", "", "")
	assert.NoError(t, err)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	f := newFixture(t)
	acct := f.addClient(t, "jordan", "jordan@example.com", "oldpass99")

	err := f.service.ChangePassword(context.Background(), acct.ID, "not-the-password", "Brand-New-Pass7")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	f := newFixture(t)
	acct := f.addClient(t, "jordan", "jordan@example.com", "oldpass99")

	err := f.service.ChangePassword(context.Background(), acct.ID, "oldpass99", "password123")
	assert.True(t, autherrors.IsCode(err, autherrors.ErrCodePasswordComplexity))

	// The account email's local part is banned from the new password.
	err = f.service.ChangePassword(context.Background(), acct.ID, "oldpass99", fmt.Sprintf("my%spass7", "jordan"))
	assert.True(t, autherrors.IsCode(err, autherrors.ErrCodePasswordComplexity))
}

// The dummy-hash constant must stay a structurally valid bcrypt hash so
// the not-found path burns a real comparison.
func TestDummyHashIsRealBcrypt(t *testing.T) {
	ok, err := password.BcryptHasher{}.Verify("some-probe-value", password.DummyHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
