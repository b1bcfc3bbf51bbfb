package webauthn

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	ceremonyTypeCreate = "webauthn.create"
	ceremonyTypeGet    = "webauthn.get"
)

// collectedClientData is the JSON the browser serialized and the
// authenticator signed over.
type collectedClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

func parseClientData(raw []byte) (*collectedClientData, error) {
	var c collectedClientData
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: bad clientDataJSON: %v", ErrMalformedResponse, err)
	}
	return &c, nil
}

// verify checks the ceremony type, the challenge binding and the origin. The
// challenge travels base64url encoded; comparison is against the exact stored
// bytes.
func (c *collectedClientData) verify(ceremonyType string, challenge []byte, allowedOrigins []string) error {
	if c.Type != ceremonyType {
		return fmt.Errorf("%w: unexpected client data type %q", ErrMalformedResponse, c.Type)
	}

	got, err := base64.RawURLEncoding.DecodeString(c.Challenge)
	if err != nil {
		return fmt.Errorf("%w: bad challenge encoding", ErrMalformedResponse)
	}
	if !bytes.Equal(got, challenge) {
		return ErrChallengeMismatch
	}

	for _, origin := range allowedOrigins {
		if c.Origin == origin {
			return nil
		}
	}
	return ErrOriginMismatch
}
