package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", "CLUB", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "CLUB", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("secret", "user-1", "USER", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken("other", good.Token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	expired, err := NewAccessToken("secret", "user-1", "USER", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	// A ticket credential signed with the same secret has no subject.
	ticketLike, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"bookingId": "b-1",
		"type":      "EVENT_TICKET",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", ticketLike)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "battery staple"))
}
