package webauthn

import (
	"context"
	"time"
)

// CeremonyKind distinguishes the two ceremony flavors in the challenge store
// keyspace.
type CeremonyKind string

const (
	CeremonyRegistration   CeremonyKind = "reg"
	CeremonyAuthentication CeremonyKind = "auth"
)

// User is the identity anchor a credential binds to. ID doubles as the
// WebAuthn user handle and must stay stable for the lifetime of the account.
type User struct {
	ID          string
	Username    string
	DisplayName string
}

// Credential is one registered authenticator binding.
type Credential struct {
	ID         []byte
	UserID     string
	PublicKey  []byte // COSE key, raw CBOR
	SignCount  uint32
	AAGUID     []byte
	Transports []string
	LastUsedAt *time.Time
}

// ChallengeStore holds in-flight ceremony state, keyed by (kind, username).
// Put overwrites any outstanding entry for the key, invalidating a stale
// un-finished ceremony. Pop atomically reads and deletes: two concurrent Pop
// calls for the same key must yield the value exactly once.
type ChallengeStore interface {
	Put(ctx context.Context, kind CeremonyKind, username string, state *ChallengeState, ttl time.Duration) error

	// Pop returns ErrChallengeExpired when the entry is absent or past its TTL.
	Pop(ctx context.Context, kind CeremonyKind, username string) (*ChallengeState, error)
}

// CredentialRepository is the durable store backing the engine. Credential IDs
// are unique across the whole system; InsertCredential must enforce that at
// the storage layer.
type CredentialRepository interface {
	FindUser(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, displayName string) (*User, error)
	ListCredentials(ctx context.Context, userID string) ([]Credential, error)
	FindCredentialByID(ctx context.Context, credentialID []byte) (*User, *Credential, error)
	InsertCredential(ctx context.Context, userID string, cred *Credential) error
	UpdateCounterAndLastUsed(ctx context.Context, credentialID []byte, newCount uint32, usedAt time.Time) error

	// DeleteUser removes the user and all of their credentials. Credentials go
	// first so the cascade holds even without a database-level constraint.
	DeleteUser(ctx context.Context, userID string) error
}

// TokenIssuer mints the opaque token handed back after a successful
// authentication ceremony.
type TokenIssuer interface {
	Issue(ctx context.Context, subject string) (string, error)
}
