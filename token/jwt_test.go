package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	tok, err := issuer.Issue(context.Background(), "alice")
	require.NoError(t, err)

	subject, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewIssuer("secret-a", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("secret-b", time.Hour)
	require.NoError(t, err)

	tok, err := issuer.Issue(context.Background(), "alice")
	require.NoError(t, err)

	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	issuer.ttl = -time.Minute

	tok, err := issuer.Issue(context.Background(), "alice")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)
}
