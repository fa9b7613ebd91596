package ticket

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ticket-test-secret"

var issuedAt = time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret, DefaultTTL, WithClock(fixedClock(now)))
	require.NoError(t, err)
	return c
}

func sampleCredential() Credential {
	return Credential{
		BookingID: "6f1d2c1e-8a53-4c3b-9d0e-111111111111",
		UserID:    "0b9e6c2a-3f41-4a8f-a2b7-222222222222",
		EventID:   "c7a4f0de-51b2-4e47-8c9d-333333333333",
		Email:     "guest@example.com",
		Name:      "Ada Guest",
		IssuedAt:  issuedAt,
		Type:      TypeEventTicket,
	}
}

func TestNewCodec(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		_, err := NewCodec("", time.Hour)
		assert.ErrorIs(t, err, ErrMissingKey)
	})
	t.Run("zero ttl uses default", func(t *testing.T) {
		c, err := NewCodec(testSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultTTL, c.TTL())
	})
}

func TestCodecRoundTrip(t *testing.T) {
	c := newTestCodec(t, issuedAt.Add(time.Hour))

	creds := []Credential{
		sampleCredential(),
		{BookingID: "b-1", UserID: "u-1", EventID: "e-1", IssuedAt: issuedAt, Type: TypeEventTicket},
	}
	for _, want := range creds {
		token, err := c.Encode(want)
		require.NoError(t, err)

		got, err := c.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCodecEncodeDefaults(t *testing.T) {
	c := newTestCodec(t, issuedAt)

	cred := sampleCredential()
	cred.Type = ""
	cred.IssuedAt = issuedAt.Add(750 * time.Millisecond).In(time.FixedZone("CET", 3600))
	token, err := c.Encode(cred)
	require.NoError(t, err)

	got, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, TypeEventTicket, got.Type)
	assert.Equal(t, issuedAt, got.IssuedAt)

	_, err = c.Encode(Credential{UserID: "u"})
	assert.Error(t, err)
}

func TestCodecTokenIsPrintableASCII(t *testing.T) {
	c := newTestCodec(t, issuedAt)
	token, err := c.Encode(sampleCredential())
	require.NoError(t, err)
	for _, r := range token {
		assert.True(t, r > 0x20 && r < 0x7f, "unexpected rune %q", r)
	}
}

func TestCodecDecodeIgnoresSurroundingWhitespace(t *testing.T) {
	c := newTestCodec(t, issuedAt)
	token, err := c.Encode(sampleCredential())
	require.NoError(t, err)

	got, err := c.Decode("  \n" + token + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, sampleCredential().BookingID, got.BookingID)
}

func TestCodecTamperDetection(t *testing.T) {
	c := newTestCodec(t, issuedAt)
	token, err := c.Encode(sampleCredential())
	require.NoError(t, err)

	for i := range len(token) {
		b := []byte(token)
		b[i] ^= 0x01
		_, err := c.Decode(string(b))
		require.Error(t, err, "flipped byte %d decoded", i)
		kind := KindOf(err)
		assert.Contains(t, []Kind{KindSignatureInvalid, KindMalformed}, kind, "byte %d gave %q", i, kind)
	}
}

func TestCodecExpiryBoundary(t *testing.T) {
	ttl := 48 * time.Hour
	sign, err := NewCodec(testSecret, ttl)
	require.NoError(t, err)
	token, err := sign.Encode(sampleCredential())
	require.NoError(t, err)

	horizon := issuedAt.Add(ttl)

	before, err := NewCodec(testSecret, ttl, WithClock(fixedClock(horizon.Add(-time.Second))))
	require.NoError(t, err)
	_, err = before.Decode(token)
	assert.NoError(t, err)

	after, err := NewCodec(testSecret, ttl, WithClock(fixedClock(horizon.Add(time.Second))))
	require.NoError(t, err)
	_, err = after.Decode(token)
	assert.Equal(t, KindExpired, KindOf(err))
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestCodecWrongType(t *testing.T) {
	c := newTestCodec(t, issuedAt)

	t.Run("other credential type", func(t *testing.T) {
		cred := sampleCredential()
		cred.Type = "PASSWORD_RESET"
		token, err := c.Encode(cred)
		require.NoError(t, err)

		_, err = c.Decode(token)
		assert.ErrorIs(t, err, &Error{Kind: KindWrongType})
	})

	t.Run("session token signed with the same key", func(t *testing.T) {
		session := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "0b9e6c2a-3f41-4a8f-a2b7-222222222222",
			"role": "USER",
			"iat":  issuedAt.Unix(),
			"exp":  issuedAt.Add(time.Hour).Unix(),
		})
		token, err := session.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = c.Decode(token)
		assert.Equal(t, KindWrongType, KindOf(err))
	})
}

func TestCodecSignatureInvalid(t *testing.T) {
	c := newTestCodec(t, issuedAt)
	claims := ticketClaims{
		BookingID: "b-1",
		Type:      TypeEventTicket,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}

	tests := []struct {
		name string
		sign func() (string, error)
	}{
		{"different key", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
		}},
		{"different algorithm", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		}},
		{"unsigned", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.sign()
			require.NoError(t, err)
			_, err = c.Decode(token)
			assert.Equal(t, KindSignatureInvalid, KindOf(err))
		})
	}
}

func TestCodecMalformed(t *testing.T) {
	c := newTestCodec(t, issuedAt)
	for _, token := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d", "%%%.%%%.%%%"} {
		_, err := c.Decode(token)
		assert.Equal(t, KindMalformed, KindOf(err), "token %q", token)
	}

	t.Run("missing booking id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ticketClaims{
			Type: TypeEventTicket,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = c.Decode(token)
		assert.Equal(t, KindMalformed, KindOf(err))
	})

	t.Run("missing expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ticketClaims{
			BookingID: "b-1",
			Type:      TypeEventTicket,
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = c.Decode(token)
		assert.Equal(t, KindMalformed, KindOf(err))
	})
}
