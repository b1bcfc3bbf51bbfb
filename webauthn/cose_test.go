package webauthn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignaturePerAlgorithm(t *testing.T) {
	message := []byte("authenticator data || client data hash")

	for name, alg := range map[string]int{
		"ES256": AlgES256,
		"EdDSA": AlgEdDSA,
		"RS256": AlgRS256,
	} {
		t.Run(name, func(t *testing.T) {
			auth, err := NewMockAuthenticator(testRPID, WithAlgorithm(alg))
			require.NoError(t, err)

			key, err := auth.PublicKeyCOSE()
			require.NoError(t, err)
			sig, err := auth.sign(message)
			require.NoError(t, err)

			assert.NoError(t, VerifySignature(key, message, sig))
			assert.ErrorIs(t, VerifySignature(key, []byte("different message"), sig), ErrSignatureInvalid)
		})
	}
}

func TestVerifySignatureWrongKey(t *testing.T) {
	message := []byte("payload")

	signer, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	other, err := NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	sig, err := signer.sign(message)
	require.NoError(t, err)
	otherKey, err := other.PublicKeyCOSE()
	require.NoError(t, err)

	assert.ErrorIs(t, VerifySignature(otherKey, message, sig), ErrSignatureInvalid)
}

func TestVerifySignatureGarbageKey(t *testing.T) {
	err := VerifySignature([]byte{0xDE, 0xAD}, []byte("m"), []byte("s"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPublicKeyCOSEEncodingIsStable(t *testing.T) {
	for name, alg := range map[string]int{
		"ES256": AlgES256,
		"EdDSA": AlgEdDSA,
		"RS256": AlgRS256,
	} {
		t.Run(name, func(t *testing.T) {
			auth, err := NewMockAuthenticator(testRPID, WithAlgorithm(alg))
			require.NoError(t, err)

			first, err := auth.PublicKeyCOSE()
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				again, err := auth.PublicKeyCOSE()
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
		})
	}
}
