package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 24)
	assert.Error(t, err)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	token, err := svc.GenerateToken("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)

	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)
	other, err := NewJWTService("other-secret", 24)
	require.NoError(t, err)

	token, err := svc.GenerateToken("admin")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	_, err = svc.ParseToken("not.a.token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	// Подписываем токен с истекшим сроком тем же секретом
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	svc, err := NewJWTService("test-secret", 24)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{Role: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ParseToken(unsigned)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
