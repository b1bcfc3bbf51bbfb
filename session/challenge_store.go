package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fido2backend/webauthn"
)

// ChallengeStore keeps in-flight ceremony state in Redis. Expiry rides on
// Redis key TTLs; Pop relies on GETDEL so two racing Finish calls can never
// both observe the same challenge.
type ChallengeStore struct {
	rdb *redis.Client
}

func NewChallengeStore(rdb *redis.Client) *ChallengeStore {
	return &ChallengeStore{rdb: rdb}
}

func key(kind webauthn.CeremonyKind, username string) string {
	return fmt.Sprintf("webauthn:%s:%s", kind, username)
}

// Put overwrites any outstanding state for the key, invalidating a stale
// un-finished ceremony.
func (s *ChallengeStore) Put(ctx context.Context, kind webauthn.CeremonyKind, username string, state *webauthn.ChallengeState, ttl time.Duration) error {
	blob, err := state.Encode()
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(kind, username), blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", webauthn.ErrStoreUnavailable, err)
	}
	return nil
}

// Pop atomically reads and deletes the stored state.
func (s *ChallengeStore) Pop(ctx context.Context, kind webauthn.CeremonyKind, username string) (*webauthn.ChallengeState, error) {
	blob, err := s.rdb.GetDel(ctx, key(kind, username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, webauthn.ErrChallengeExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", webauthn.ErrStoreUnavailable, err)
	}
	state, err := webauthn.DecodeChallengeState(blob)
	if err != nil {
		// Corrupt store contents are an infrastructure failure, not a client one.
		return nil, fmt.Errorf("%w: %v", webauthn.ErrStoreUnavailable, err)
	}
	return state, nil
}
