package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would silently
// refuse to hash.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash with a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// DummyVerify spends the same time as a real comparison so that login
// does not reveal whether an email is registered.
func DummyVerify(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

var dummyHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8.tQy8Nn6Rrj0E6K0uL8x1sR2lV5e6")
