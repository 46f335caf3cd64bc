package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningTokenRoundTrip(t *testing.T) {
	issuer := NewSigningTokenIssuer("test-secret", time.Hour)

	rcp := NewRecipientToken()
	require.Len(t, rcp, 26, "recipient tokens are ULIDs")

	signed, err := issuer.Issue(rcp)
	require.NoError(t, err)

	parsed, err := issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, rcp, parsed)
}

func TestSigningTokenExpired(t *testing.T) {
	issuer := NewSigningTokenIssuer("test-secret", time.Hour)
	issuer.ttl = -time.Minute

	signed, err := issuer.Issue(NewRecipientToken())
	require.NoError(t, err)

	_, err = issuer.Parse(signed)
	assert.ErrorIs(t, err, ErrSigningTokenInvalid)
}

func TestSigningTokenWrongKey(t *testing.T) {
	a := NewSigningTokenIssuer("secret-a", time.Hour)
	b := NewSigningTokenIssuer("secret-b", time.Hour)

	signed, err := a.Issue(NewRecipientToken())
	require.NoError(t, err)

	_, err = b.Parse(signed)
	assert.ErrorIs(t, err, ErrSigningTokenInvalid)
}

func TestSigningTokenGarbage(t *testing.T) {
	issuer := NewSigningTokenIssuer("test-secret", time.Hour)
	_, err := issuer.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrSigningTokenInvalid)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password entirely", hash))
}

func TestValidatePasswordComplexity(t *testing.T) {
	assert.Error(t, ValidatePasswordComplexity("short"))
	assert.NoError(t, ValidatePasswordComplexity("long enough password"))
}
