package webauthn

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory implementations of ChallengeStore and CredentialRepository with
// deterministic expiry. Meant for tests and development; production wiring
// uses Redis and Postgres.

type memoryEntry struct {
	state     *ChallengeState
	expiresAt time.Time
}

// MemoryChallengeStore keeps ceremony state in a mutex-guarded map. Pop is
// atomic under the lock, matching the single-use guarantee of the Redis
// implementation.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock, letting tests step past TTLs without
// sleeping.
func (s *MemoryChallengeStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func stateKey(kind CeremonyKind, username string) string {
	return string(kind) + ":" + username
}

func (s *MemoryChallengeStore) Put(ctx context.Context, kind CeremonyKind, username string, state *ChallengeState, ttl time.Duration) error {
	// Round-trip through the blob encoding so the store exercises the same
	// codec path as the Redis one.
	blob, err := state.Encode()
	if err != nil {
		return err
	}
	decoded, err := DecodeChallengeState(blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[stateKey(kind, username)] = memoryEntry{
		state:     decoded,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryChallengeStore) Pop(ctx context.Context, kind CeremonyKind, username string) (*ChallengeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey(kind, username)
	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrChallengeExpired
	}
	delete(s.entries, key)
	if s.now().After(entry.expiresAt) {
		return nil, ErrChallengeExpired
	}
	return entry.state, nil
}

// Len reports the number of outstanding ceremonies.
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryRepository is an in-memory CredentialRepository enforcing the same
// uniqueness rules as the Postgres schema: unique username, globally unique
// credential id.
type MemoryRepository struct {
	mu          sync.RWMutex
	usersByName map[string]*User
	usersByID   map[string]*User
	creds       []*Credential
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		usersByName: make(map[string]*User),
		usersByID:   make(map[string]*User),
	}
}

func (r *MemoryRepository) FindUser(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.usersByName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, username, displayName string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.usersByName[username]; ok {
		return nil, ErrDuplicateUser
	}
	u := &User{ID: uuid.NewString(), Username: username, DisplayName: displayName}
	r.usersByName[username] = u
	r.usersByID[u.ID] = u
	clone := *u
	return &clone, nil
}

func (r *MemoryRepository) ListCredentials(ctx context.Context, userID string) ([]Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Credential
	for _, c := range r.creds {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) FindCredentialByID(ctx context.Context, credentialID []byte) (*User, *Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creds {
		if bytes.Equal(c.ID, credentialID) {
			u, ok := r.usersByID[c.UserID]
			if !ok {
				return nil, nil, ErrUserNotFound
			}
			uClone, cClone := *u, *c
			return &uClone, &cClone, nil
		}
	}
	return nil, nil, ErrCredentialNotFound
}

func (r *MemoryRepository) InsertCredential(ctx context.Context, userID string, cred *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if bytes.Equal(c.ID, cred.ID) {
			return ErrDuplicateCredential
		}
	}
	clone := *cred
	clone.UserID = userID
	r.creds = append(r.creds, &clone)
	return nil
}

func (r *MemoryRepository) UpdateCounterAndLastUsed(ctx context.Context, credentialID []byte, newCount uint32, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if bytes.Equal(c.ID, credentialID) {
			c.SignCount = newCount
			t := usedAt
			c.LastUsedAt = &t
			return nil
		}
	}
	return ErrCredentialNotFound
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usersByID[userID]
	if !ok {
		return ErrUserNotFound
	}
	kept := r.creds[:0]
	for _, c := range r.creds {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	r.creds = kept
	delete(r.usersByName, u.Username)
	delete(r.usersByID, userID)
	return nil
}
