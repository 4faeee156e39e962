package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func validClaims(sub string) Claims {
	return Claims{
		Name: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)

	user, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("42")))
	require.NoError(t, err)
	require.Equal(t, User{ID: "42", Name: "Alice"}, user)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier(testSecret)

	expired := validClaims("42")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("42")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("42"))},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(""))},
		{"unsigned", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("42"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestVerify_Disabled(t *testing.T) {
	v := NewVerifier("")
	require.False(t, v.Enabled())

	_, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("42")))
	require.ErrorIs(t, err, ErrDisabled)
}
