package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// URLEncodedBase64 is a byte slice that travels as unpadded url-safe base64 in
// JSON, the standard WebAuthn wire encoding for binary fields.
type URLEncodedBase64 []byte

func (b URLEncodedBase64) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

func (b *URLEncodedBase64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*b = nil
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		// Some clients send padded base64url.
		raw, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return err
		}
	}
	*b = raw
	return nil
}

func (b URLEncodedBase64) String() string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// ChallengeState is the ceremony context persisted between Begin and Finish.
// Raw byte fields must round-trip exactly, so the blob encoding is CBOR.
type ChallengeState struct {
	Kind             CeremonyKind `cbor:"kind"`
	Challenge        []byte       `cbor:"challenge"`
	RPID             string       `cbor:"rpId"`
	UserID           string       `cbor:"userId,omitempty"`
	AllowedIDs       [][]byte     `cbor:"allowedIds,omitempty"`
	UserVerification string       `cbor:"uv"`
	CreatedAt        int64        `cbor:"createdAt"`
}

// Encode serializes the state to CBOR wrapped in url-safe base64, suitable for
// stores that only take string values.
func (s *ChallengeState) Encode() (string, error) {
	blob, err := cbor.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode challenge state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

// DecodeChallengeState reverses Encode.
func DecodeChallengeState(encoded string) (*ChallengeState, error) {
	blob, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode challenge state: %w", err)
	}
	var s ChallengeState
	if err := cbor.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode challenge state: %w", err)
	}
	return &s, nil
}
