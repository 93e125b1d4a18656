package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cr3tpass")
	require.NoError(t, err)
	require.NotEmpty(t, h)

	assert.True(t, CheckPassword(h, "s3cr3tpass"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("not a hash", "s3cr3tpass"))
}

func TestTokens_IssueParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	token, sessionID, expiresAt, err := tokens.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, sessionID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	userID, parsedSessionID, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
	assert.Equal(t, sessionID, parsedSessionID)
}

func TestTokens_Parse_invalid(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	_, _, err := tokens.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// signed with a different secret
	token, _, _, err := NewTokens("other", time.Hour).Issue(1)
	require.NoError(t, err)
	_, _, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// expired
	token, _, _, err = NewTokens("secret", -time.Hour).Issue(1)
	require.NoError(t, err)
	_, _, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
