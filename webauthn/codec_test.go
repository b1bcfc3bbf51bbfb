package webauthn

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLEncodedBase64RoundTrip(t *testing.T) {
	type payload struct {
		Data URLEncodedBase64 `json:"data"`
	}

	in := payload{Data: []byte{0x00, 0xFF, 0xAA, 0x01, 0x7F}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"data":"AP-qAX8"}`, string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Data, out.Data)
}

func TestURLEncodedBase64AcceptsPadded(t *testing.T) {
	var b URLEncodedBase64
	require.NoError(t, json.Unmarshal([]byte(`"AP-qAX8="`), &b))
	assert.Equal(t, URLEncodedBase64{0x00, 0xFF, 0xAA, 0x01, 0x7F}, b)
}

func TestChallengeStateRoundTrip(t *testing.T) {
	in := &ChallengeState{
		Kind:             CeremonyAuthentication,
		Challenge:        []byte{0x00, 0x01, 0xFE, 0xFF, 0x10},
		RPID:             "localhost",
		UserID:           "5f2c1f3e-0000-4000-8000-000000000000",
		AllowedIDs:       [][]byte{{0xAA, 0x01}, {0xBB, 0x02, 0x03}},
		UserVerification: "required",
		CreatedAt:        time.Now().Unix(),
	}

	encoded, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeChallengeState(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeChallengeStateRejectsGarbage(t *testing.T) {
	_, err := DecodeChallengeState("@@not base64@@")
	assert.Error(t, err)

	_, err = DecodeChallengeState("AAAA") // valid base64, not a CBOR state
	assert.Error(t, err)
}
