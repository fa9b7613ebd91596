package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and sent in the Authorization header when
// calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims are the claims of a session access token.  Subject holds
// the user ID.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ErrInvalidAccessToken is returned for any access token that does not
// verify or lacks a subject.
var ErrInvalidAccessToken = errors.New("invalid access token")

// NewAccessToken builds and signs an HS256 JWT carrying the user ID as
// subject, the role, and iat/exp.
func NewAccessToken(secret, userID, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw and returns its claims.  Tokens without a
// subject are rejected, which also keeps ticket credentials signed with a
// shared secret from being accepted as sessions.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidAccessToken, err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
