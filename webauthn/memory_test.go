package webauthn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(challenge []byte) *ChallengeState {
	return &ChallengeState{
		Kind:             CeremonyRegistration,
		Challenge:        challenge,
		RPID:             testRPID,
		UserVerification: "required",
		CreatedAt:        time.Now().Unix(),
	}
}

func TestMemoryChallengeStorePutPop(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CeremonyRegistration, "alice", testState([]byte{1, 2, 3}), time.Minute))

	state, err := store.Pop(ctx, CeremonyRegistration, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, state.Challenge)

	_, err = store.Pop(ctx, CeremonyRegistration, "alice")
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestMemoryChallengeStoreKeysAreKindScoped(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CeremonyRegistration, "alice", testState([]byte{1}), time.Minute))
	require.NoError(t, store.Put(ctx, CeremonyAuthentication, "alice", testState([]byte{2}), time.Minute))

	reg, err := store.Pop(ctx, CeremonyRegistration, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, reg.Challenge)

	auth, err := store.Pop(ctx, CeremonyAuthentication, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, auth.Challenge)
}

func TestMemoryChallengeStoreOverwrite(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CeremonyRegistration, "alice", testState([]byte{1}), time.Minute))
	require.NoError(t, store.Put(ctx, CeremonyRegistration, "alice", testState([]byte{2}), time.Minute))

	state, err := store.Pop(ctx, CeremonyRegistration, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, state.Challenge)
}

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, CeremonyRegistration, "alice", testState([]byte{1}), time.Minute))
	store.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })

	_, err := store.Pop(ctx, CeremonyRegistration, "alice")
	assert.ErrorIs(t, err, ErrChallengeExpired)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryChallengeStoreConcurrentPop(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, CeremonyAuthentication, "alice", testState([]byte{9}), time.Minute))

	const racers = 16
	results := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = store.Pop(ctx, CeremonyAuthentication, "alice")
		}()
	}
	wg.Wait()

	var won int
	for _, err := range results {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestMemoryRepositoryConstraints(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, "alice", "Alice")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "alice", "Other Alice")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	bob, err := repo.CreateUser(ctx, "bob", "Bob")
	require.NoError(t, err)

	cred := &Credential{ID: []byte{0xAA}, PublicKey: []byte{1}, SignCount: 0}
	require.NoError(t, repo.InsertCredential(ctx, alice.ID, cred))

	// credential_id uniqueness is global, not per user
	assert.ErrorIs(t, repo.InsertCredential(ctx, bob.ID, cred), ErrDuplicateCredential)
}

func TestMemoryRepositoryDeleteUserCascades(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, repo.InsertCredential(ctx, alice.ID, &Credential{ID: []byte{0xAA}, PublicKey: []byte{1}}))

	require.NoError(t, repo.DeleteUser(ctx, alice.ID))

	_, err = repo.FindUser(ctx, "alice")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, _, err = repo.FindCredentialByID(ctx, []byte{0xAA})
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestMemoryRepositoryCounterUpdate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, repo.InsertCredential(ctx, alice.ID, &Credential{ID: []byte{0xAA}, PublicKey: []byte{1}}))

	now := time.Now()
	require.NoError(t, repo.UpdateCounterAndLastUsed(ctx, []byte{0xAA}, 7, now))

	_, cred, err := repo.FindCredentialByID(ctx, []byte{0xAA})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), cred.SignCount)
	require.NotNil(t, cred.LastUsedAt)
	assert.True(t, cred.LastUsedAt.Equal(now))

	err = repo.UpdateCounterAndLastUsed(ctx, []byte{0xBB}, 1, now)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
