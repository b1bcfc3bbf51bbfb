package webauthn

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CTAP2 canonical CBOR, the encoding real authenticators emit. Map output is
// deterministic, so repeated encodings of the same key are byte-identical.
var ctap2Enc cbor.EncMode

func init() {
	em, err := cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	ctap2Enc = em
}

// MockAuthenticator simulates a FIDO2 authenticator for tests and demos. It
// holds a real signing key and produces responses the engine verifies the
// same way it would verify a browser's.
type MockAuthenticator struct {
	AAGUID       []byte
	CredentialID []byte
	SignCount    uint32
	UserPresent  bool
	UserVerified bool

	alg      int
	ecKey    *ecdsa.PrivateKey
	edKey    ed25519.PrivateKey
	rsaKey   *rsa.PrivateKey
	rpIDHash []byte
}

type MockOption func(*MockAuthenticator)

// WithAlgorithm selects the key algorithm (AlgES256, AlgEdDSA or AlgRS256).
func WithAlgorithm(alg int) MockOption {
	return func(m *MockAuthenticator) { m.alg = alg }
}

func WithCredentialID(id []byte) MockOption {
	return func(m *MockAuthenticator) { m.CredentialID = id }
}

func WithUserVerified(uv bool) MockOption {
	return func(m *MockAuthenticator) { m.UserVerified = uv }
}

// NewMockAuthenticator creates an authenticator scoped to rpID with a fresh
// random key and credential id.
func NewMockAuthenticator(rpID string, opts ...MockOption) (*MockAuthenticator, error) {
	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}
	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}
	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		CredentialID: credID,
		UserPresent:  true,
		UserVerified: true,
		alg:          AlgES256,
		rpIDHash:     rpIDHash[:],
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	switch m.alg {
	case AlgES256:
		m.ecKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case AlgEdDSA:
		_, m.edKey, err = ed25519.GenerateKey(rand.Reader)
	case AlgRS256:
		m.rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
	default:
		err = fmt.Errorf("mock authenticator: unsupported algorithm %d", m.alg)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// PublicKeyCOSE returns the public key in COSE CBOR encoding.
func (m *MockAuthenticator) PublicKeyCOSE() ([]byte, error) {
	switch m.alg {
	case AlgES256:
		pub := m.ecKey.Public().(*ecdsa.PublicKey)
		return ctap2Enc.Marshal(map[int]interface{}{
			1:  keyTypeEC2,
			3:  AlgES256,
			-1: curveP256,
			-2: pub.X.Bytes(),
			-3: pub.Y.Bytes(),
		})
	case AlgEdDSA:
		pub := m.edKey.Public().(ed25519.PublicKey)
		return ctap2Enc.Marshal(map[int]interface{}{
			1:  keyTypeOKP,
			3:  AlgEdDSA,
			-1: curveEd25519,
			-2: []byte(pub),
		})
	case AlgRS256:
		pub := m.rsaKey.Public().(*rsa.PublicKey)
		e := big4(uint32(pub.E))
		return ctap2Enc.Marshal(map[int]interface{}{
			1:  keyTypeRSA,
			3:  AlgRS256,
			-1: pub.N.Bytes(),
			-2: e,
		})
	}
	return nil, fmt.Errorf("mock authenticator: unsupported algorithm %d", m.alg)
}

func (m *MockAuthenticator) sign(message []byte) ([]byte, error) {
	switch m.alg {
	case AlgES256:
		h := sha256.Sum256(message)
		return ecdsa.SignASN1(rand.Reader, m.ecKey, h[:])
	case AlgEdDSA:
		return ed25519.Sign(m.edKey, message), nil
	case AlgRS256:
		h := sha256.Sum256(message)
		return rsa.SignPKCS1v15(rand.Reader, m.rsaKey, crypto.SHA256, h[:])
	}
	return nil, fmt.Errorf("mock authenticator: unsupported algorithm %d", m.alg)
}

// CreateRegistrationResponse builds the attestation payload a client would
// post to RegisterFinish, with "none" format attestation.
func (m *MockAuthenticator) CreateRegistrationResponse(challenge []byte, origin string) (*RegistrationResponse, error) {
	authData, err := m.buildAuthData(true)
	if err != nil {
		return nil, err
	}
	attObj, err := ctap2Enc.Marshal(map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	return &RegistrationResponse{
		ID:    base64.RawURLEncoding.EncodeToString(m.CredentialID),
		RawID: m.CredentialID,
		Type:  credentialTypePublicKey,
		Response: AttestationResponseData{
			ClientDataJSON:    m.clientDataJSON(ceremonyTypeCreate, challenge, origin),
			AttestationObject: attObj,
		},
		Transports: []string{"usb"},
	}, nil
}

// CreateAssertionResponse builds a signed assertion for AuthenticateFinish,
// incrementing the sign counter first like a real authenticator.
func (m *MockAuthenticator) CreateAssertionResponse(challenge []byte, origin string) (*AssertionResponse, error) {
	m.SignCount++

	authData, err := m.buildAuthData(false)
	if err != nil {
		return nil, err
	}
	clientDataJSON := m.clientDataJSON(ceremonyTypeGet, challenge, origin)
	clientDataHash := sha256.Sum256(clientDataJSON)

	sig, err := m.sign(append(append([]byte{}, authData...), clientDataHash[:]...))
	if err != nil {
		return nil, err
	}

	return &AssertionResponse{
		ID:    base64.RawURLEncoding.EncodeToString(m.CredentialID),
		RawID: m.CredentialID,
		Type:  credentialTypePublicKey,
		Response: AssertionResponseData{
			ClientDataJSON:    clientDataJSON,
			AuthenticatorData: authData,
			Signature:         sig,
		},
	}, nil
}

func (m *MockAuthenticator) buildAuthData(attested bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(m.rpIDHash)

	var flags byte
	if m.UserPresent {
		flags |= flagUserPresent
	}
	if m.UserVerified {
		flags |= flagUserVerified
	}
	if attested {
		flags |= flagAttestedData
	}
	buf.WriteByte(flags)

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], m.SignCount)
	buf.Write(count[:])

	if attested {
		buf.Write(m.AAGUID)
		var idLen [2]byte
		binary.BigEndian.PutUint16(idLen[:], uint16(len(m.CredentialID)))
		buf.Write(idLen[:])
		buf.Write(m.CredentialID)
		key, err := m.PublicKeyCOSE()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
	}
	return buf.Bytes(), nil
}

func (m *MockAuthenticator) clientDataJSON(ceremonyType string, challenge []byte, origin string) []byte {
	data, _ := json.Marshal(collectedClientData{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
	return data
}

func big4(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	// Strip leading zeros so the exponent matches typical COSE encodings.
	i := 0
	for i < 3 && b[i] == 0 {
		i++
	}
	return b[i:]
}
