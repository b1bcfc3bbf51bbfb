package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fido2backend/webauthn"
)

// Integration test, runs only when a Redis instance is reachable.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	return rdb
}

func TestChallengeStorePutPop(t *testing.T) {
	store := NewChallengeStore(testClient(t))
	ctx := context.Background()

	state := &webauthn.ChallengeState{
		Kind:             webauthn.CeremonyRegistration,
		Challenge:        []byte{1, 2, 3, 4},
		RPID:             "localhost",
		UserVerification: "required",
		CreatedAt:        time.Now().Unix(),
	}
	require.NoError(t, store.Put(ctx, webauthn.CeremonyRegistration, "it-alice", state, time.Minute))

	got, err := store.Pop(ctx, webauthn.CeremonyRegistration, "it-alice")
	require.NoError(t, err)
	assert.Equal(t, state.Challenge, got.Challenge)
	assert.Equal(t, state.RPID, got.RPID)

	// single use
	_, err = store.Pop(ctx, webauthn.CeremonyRegistration, "it-alice")
	assert.ErrorIs(t, err, webauthn.ErrChallengeExpired)
}

func TestChallengeStoreTTL(t *testing.T) {
	store := NewChallengeStore(testClient(t))
	ctx := context.Background()

	state := &webauthn.ChallengeState{
		Kind:      webauthn.CeremonyAuthentication,
		Challenge: []byte{9},
		RPID:      "localhost",
		CreatedAt: time.Now().Unix(),
	}
	require.NoError(t, store.Put(ctx, webauthn.CeremonyAuthentication, "it-alice", state, 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, err := store.Pop(ctx, webauthn.CeremonyAuthentication, "it-alice")
	assert.ErrorIs(t, err, webauthn.ErrChallengeExpired)
}

func TestChallengeStoreCorruptState(t *testing.T) {
	rdb := testClient(t)
	store := NewChallengeStore(rdb)
	ctx := context.Background()

	// Something other than this service wrote to the key.
	require.NoError(t, rdb.Set(ctx, "webauthn:reg:it-alice", "not a state blob", time.Minute).Err())

	_, err := store.Pop(ctx, webauthn.CeremonyRegistration, "it-alice")
	assert.ErrorIs(t, err, webauthn.ErrStoreUnavailable)
}
