package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fido2backend/webauthn"
)

// Integration test, runs only when a Postgres instance is reachable.
func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return NewRepo(conn)
}

func TestRepoUserAndCredentialLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	username := "it-" + uuid.NewString()
	credID := []byte(uuid.NewString())

	user, err := repo.CreateUser(ctx, username, "Integration Alice")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteUser(ctx, user.ID) })

	_, err = repo.CreateUser(ctx, username, "Impostor")
	assert.ErrorIs(t, err, webauthn.ErrDuplicateUser)

	found, err := repo.FindUser(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	cred := &webauthn.Credential{
		ID:         credID,
		PublicKey:  []byte{0xA5, 0x01, 0x02},
		SignCount:  0,
		Transports: []string{"usb", "nfc"},
	}
	require.NoError(t, repo.InsertCredential(ctx, user.ID, cred))
	assert.ErrorIs(t, repo.InsertCredential(ctx, user.ID, cred), webauthn.ErrDuplicateCredential)

	owner, stored, err := repo.FindCredentialByID(ctx, credID)
	require.NoError(t, err)
	assert.Equal(t, username, owner.Username)
	assert.Equal(t, []string{"usb", "nfc"}, stored.Transports)
	assert.Nil(t, stored.LastUsedAt)

	require.NoError(t, repo.UpdateCounterAndLastUsed(ctx, credID, 3, time.Now()))
	_, stored, err = repo.FindCredentialByID(ctx, credID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stored.SignCount)
	assert.NotNil(t, stored.LastUsedAt)

	listed, err := repo.ListCredentials(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, repo.DeleteUser(ctx, user.ID))
	_, err = repo.FindUser(ctx, username)
	assert.ErrorIs(t, err, webauthn.ErrUserNotFound)
	_, _, err = repo.FindCredentialByID(ctx, credID)
	assert.ErrorIs(t, err, webauthn.ErrCredentialNotFound)
}

func TestRepoNotFoundCases(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	_, err := repo.FindUser(ctx, "it-ghost-"+uuid.NewString())
	assert.ErrorIs(t, err, webauthn.ErrUserNotFound)

	_, _, err = repo.FindCredentialByID(ctx, []byte(uuid.NewString()))
	assert.ErrorIs(t, err, webauthn.ErrCredentialNotFound)

	err = repo.UpdateCounterAndLastUsed(ctx, []byte(uuid.NewString()), 1, time.Now())
	assert.ErrorIs(t, err, webauthn.ErrCredentialNotFound)

	err = repo.DeleteUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, webauthn.ErrUserNotFound)
}
