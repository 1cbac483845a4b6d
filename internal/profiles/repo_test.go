package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/dbtest"
)

func TestRepositoryProfileFlow(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateProfileDTO{
		Email:        "  Ada@Example.com ",
		PasswordHash: "hash",
		FullName:     "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "UTC", created.Timezone)

	found, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Create(ctx, CreateProfileDTO{Email: "ada@example.com", PasswordHash: "x", FullName: "Dup"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, now))
	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "rehashed"))
	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rehashed", reloaded.PasswordHash)

	bio := "analyst"
	updated, err := repo.UpdateProfile(ctx, created.ID, UpdateProfileDTO{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "analyst", *updated.Bio)
	require.NotNil(t, updated.LastLoginAt)

	_, err = repo.UpdateProfile(ctx, uuid.New(), UpdateProfileDTO{Bio: &bio})
	assert.True(t, db.IsNotFound(err))
}

func TestRepositoryContactsByIDs(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateProfileDTO{Email: "a@example.com", PasswordHash: "h", FullName: "A"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, CreateProfileDTO{Email: "b@example.com", PasswordHash: "h", FullName: "B"})
	require.NoError(t, err)

	contacts, err := repo.ContactsByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, "b@example.com", contacts[b.ID].Email)
	assert.Equal(t, "A", contacts[a.ID].FullName)

	empty, err := repo.ContactsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
