package account

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByUsernameOrEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateAccountRequest{
		Email:        "jordan@example.com",
		Username:     "jordan",
		PasswordHash: "hash",
		Role:         RoleClient,
	})
	require.NoError(t, err)

	byUsername, err := repo.FindByUsernameOrEmail(ctx, "jordan")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byEmail, err := repo.FindByUsernameOrEmail(ctx, "jordan@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByUsernameOrEmail(ctx, "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.FindByUsernameOrEmail(ctx, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateAdminIfAbsent(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.CreateAdminIfAbsent(ctx, CreateAccountRequest{
		Email: "admin@example.com", Username: "admin", PasswordHash: "hash", Role: RoleAdmin,
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Second attempt is a no-op, not an error.
	created, err = repo.CreateAdminIfAbsent(ctx, CreateAccountRequest{
		Email: "other@example.com", Username: "other", PasswordHash: "hash", Role: RoleAdmin,
	})
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := repo.FindAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateAdminIfAbsentConcurrent(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = repo.CreateAdminIfAbsent(ctx, CreateAccountRequest{
				Email: "admin@example.com", Username: "admin", PasswordHash: "hash", Role: RoleAdmin,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, won := range results {
		if won {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdatePassword(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateAccountRequest{
		Email: "jordan@example.com", Username: "jordan", PasswordHash: "old", Role: RoleClient,
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePassword(ctx, created.ID, "new"))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, uuid.New(), "x"), ErrAccountNotFound)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleClient.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}
