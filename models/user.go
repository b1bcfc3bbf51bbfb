package models

import (
	"strings"
	"time"
)

// User anchors registered passkeys. ID is a UUID string whose bytes serve as
// the WebAuthn user handle.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName string `gorm:"size:255" json:"displayName"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Credentials []Credential `json:"-"`
}

// Credential is one registered authenticator. CredentialID and PublicKey are
// binary (bytea under Postgres); the unique index on CredentialID is what
// closes the race between concurrent registrations of the same physical key.
type Credential struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UserID       string `gorm:"type:uuid;index;not null" json:"userId"`
	CredentialID []byte `gorm:"uniqueIndex;not null" json:"credentialId"`
	PublicKey    []byte `gorm:"not null" json:"-"`
	SignCount    uint32 `json:"signCount"`
	AAGUID       []byte `gorm:"type:bytea" json:"-"`
	Transports   string `gorm:"size:255" json:"transports"` // comma-separated hints

	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `gorm:"index" json:"lastUsedAt,omitempty"`
}

// TransportList splits the stored comma-separated transport hints.
func (c *Credential) TransportList() []string {
	if c.Transports == "" {
		return nil
	}
	return strings.Split(c.Transports, ",")
}

// JoinTransports packs transport hints for storage.
func JoinTransports(transports []string) string {
	return strings.Join(transports, ",")
}
