package webauthn

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Authenticator data flag bits.
const (
	flagUserPresent   = 0x01
	flagUserVerified  = 0x04
	flagAttestedData  = 0x40
	flagExtensionData = 0x80
)

// AuthenticatorData is the parsed form of the raw authenticator data an
// authenticator returns in both ceremonies. The attested credential fields
// are populated only during registration (AT flag set).
type AuthenticatorData struct {
	RPIDHash     []byte
	UserPresent  bool
	UserVerified bool
	SignCount    uint32

	AAGUID       []byte
	CredentialID []byte
	PublicKey    []byte // COSE key, raw CBOR, exactly as received
}

// ParseAuthenticatorData decodes the fixed 37-byte header and, when present,
// the attested credential data that follows it.
func ParseAuthenticatorData(raw []byte) (*AuthenticatorData, error) {
	if len(raw) < 37 {
		return nil, fmt.Errorf("%w: authenticator data too short (%d bytes)", ErrMalformedResponse, len(raw))
	}

	flags := raw[32]
	ad := &AuthenticatorData{
		RPIDHash:     raw[:32],
		UserPresent:  flags&flagUserPresent != 0,
		UserVerified: flags&flagUserVerified != 0,
		SignCount:    binary.BigEndian.Uint32(raw[33:37]),
	}

	if flags&flagAttestedData == 0 {
		return ad, nil
	}

	rest := raw[37:]
	if len(rest) < 18 {
		return nil, fmt.Errorf("%w: truncated attested credential data", ErrMalformedResponse)
	}
	ad.AAGUID = rest[:16]
	idLen := int(binary.BigEndian.Uint16(rest[16:18]))
	rest = rest[18:]
	if len(rest) < idLen {
		return nil, fmt.Errorf("%w: truncated credential id", ErrMalformedResponse)
	}
	ad.CredentialID = rest[:idLen]

	// The COSE key is the next CBOR item; anything after it is extension data.
	dec := cbor.NewDecoder(bytes.NewReader(rest[idLen:]))
	var key cbor.RawMessage
	if err := dec.Decode(&key); err != nil {
		return nil, fmt.Errorf("%w: bad credential public key: %v", ErrMalformedResponse, err)
	}
	ad.PublicKey = []byte(key)

	return ad, nil
}

// attestationObject is the CBOR container posted at registration finish. The
// attestation statement is carried but its trust chain is not verified; only
// self/none attestation is accepted here.
type attestationObject struct {
	AuthData []byte          `cbor:"authData"`
	Format   string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
}

func parseAttestationObject(raw []byte) (*attestationObject, error) {
	var obj attestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: bad attestation object: %v", ErrMalformedResponse, err)
	}
	if len(obj.AuthData) == 0 {
		return nil, fmt.Errorf("%w: attestation object missing authData", ErrMalformedResponse)
	}
	return &obj, nil
}
