package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE algorithm identifiers accepted for new credentials, in preference
// order. The algorithm used at verification time is always dispatched from
// the stored key, never assumed.
const (
	AlgES256 int = -7
	AlgEdDSA int = -8
	AlgES384 int = -35
	AlgES512 int = -36
	AlgRS256 int = -257
)

// COSE key types.
const (
	keyTypeOKP = 1
	keyTypeEC2 = 2
	keyTypeRSA = 3
)

// COSE elliptic curves.
const (
	curveP256    = 1
	curveP384    = 2
	curveP521    = 3
	curveEd25519 = 6
)

// AcceptedAlgorithms lists the algorithms offered in registration options.
func AcceptedAlgorithms() []int {
	return []int{AlgES256, AlgEdDSA, AlgRS256, AlgES384, AlgES512}
}

// coseKey is the CBOR shape of a COSE_Key. The meaning of the negative labels
// depends on the key type: -1 is the curve for EC2/OKP keys and the modulus
// for RSA keys, -2 is the x coordinate or the RSA exponent.
type coseKey struct {
	KeyType int             `cbor:"1,keyasint"`
	Alg     int             `cbor:"3,keyasint,omitempty"`
	CrvOrN  cbor.RawMessage `cbor:"-1,keyasint,omitempty"`
	XOrE    cbor.RawMessage `cbor:"-2,keyasint,omitempty"`
	Y       cbor.RawMessage `cbor:"-3,keyasint,omitempty"`
}

// VerifySignature checks sig over message using a stored raw COSE public key.
// Returns ErrSignatureInvalid on any mismatch, ErrMalformedResponse if the
// key itself cannot be decoded.
func VerifySignature(rawKey, message, sig []byte) error {
	var key coseKey
	if err := cbor.Unmarshal(rawKey, &key); err != nil {
		return fmt.Errorf("%w: bad COSE key: %v", ErrMalformedResponse, err)
	}

	switch key.KeyType {
	case keyTypeEC2:
		return verifyECDSA(&key, message, sig)
	case keyTypeOKP:
		return verifyEd25519(&key, message, sig)
	case keyTypeRSA:
		return verifyRSA(&key, message, sig)
	}
	return fmt.Errorf("%w: unsupported COSE key type %d", ErrMalformedResponse, key.KeyType)
}

func verifyECDSA(key *coseKey, message, sig []byte) error {
	pub, hash, err := decodeECDSAKey(key)
	if err != nil {
		return err
	}

	var parsed struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(sig, &parsed); err != nil {
		return fmt.Errorf("%w: bad ECDSA signature encoding", ErrSignatureInvalid)
	}
	if !ecdsa.Verify(pub, hash(message), parsed.R, parsed.S) {
		return ErrSignatureInvalid
	}
	return nil
}

func decodeECDSAKey(key *coseKey) (*ecdsa.PublicKey, func([]byte) []byte, error) {
	var curveID int
	if err := cbor.Unmarshal(key.CrvOrN, &curveID); err != nil {
		return nil, nil, fmt.Errorf("%w: bad COSE curve", ErrMalformedResponse)
	}

	var curve elliptic.Curve
	var hash func([]byte) []byte
	switch curveID {
	case curveP256:
		curve = elliptic.P256()
		hash = func(m []byte) []byte { h := sha256.Sum256(m); return h[:] }
	case curveP384:
		curve = elliptic.P384()
		hash = func(m []byte) []byte { h := sha512.Sum384(m); return h[:] }
	case curveP521:
		curve = elliptic.P521()
		hash = func(m []byte) []byte { h := sha512.Sum512(m); return h[:] }
	default:
		return nil, nil, fmt.Errorf("%w: unsupported curve %d", ErrMalformedResponse, curveID)
	}

	var xb, yb []byte
	if err := cbor.Unmarshal(key.XOrE, &xb); err != nil {
		return nil, nil, fmt.Errorf("%w: bad COSE x coordinate", ErrMalformedResponse)
	}
	if err := cbor.Unmarshal(key.Y, &yb); err != nil {
		return nil, nil, fmt.Errorf("%w: bad COSE y coordinate", ErrMalformedResponse)
	}

	pub := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	return pub, hash, nil
}

func verifyEd25519(key *coseKey, message, sig []byte) error {
	var curveID int
	if err := cbor.Unmarshal(key.CrvOrN, &curveID); err != nil || curveID != curveEd25519 {
		return fmt.Errorf("%w: unsupported OKP curve", ErrMalformedResponse)
	}
	var xb []byte
	if err := cbor.Unmarshal(key.XOrE, &xb); err != nil || len(xb) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad Ed25519 public key", ErrMalformedResponse)
	}
	if !ed25519.Verify(ed25519.PublicKey(xb), message, sig) {
		return ErrSignatureInvalid
	}
	return nil
}

func verifyRSA(key *coseKey, message, sig []byte) error {
	var nb, eb []byte
	if err := cbor.Unmarshal(key.CrvOrN, &nb); err != nil {
		return fmt.Errorf("%w: bad RSA modulus", ErrMalformedResponse)
	}
	if err := cbor.Unmarshal(key.XOrE, &eb); err != nil {
		return fmt.Errorf("%w: bad RSA exponent", ErrMalformedResponse)
	}
	if len(eb) > 8 {
		return fmt.Errorf("%w: bad RSA exponent", ErrMalformedResponse)
	}

	// Exponent bytes are big-endian per RFC 8230.
	var e uint64
	for _, b := range eb {
		e = e<<8 | uint64(b)
	}

	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e)}
	h := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}
