package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenide/pluginhub/internal/config"
)

func testProvider(duration time.Duration) *JWTProvider {
	return NewJWTProvider(&config.AuthConfig{
		JWTSecret:     "test-secret-at-least-32-characters",
		TokenDuration: duration,
		Issuer:        "pluginhub-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	p := testProvider(time.Hour)

	token, err := p.GenerateToken("admin", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := p.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.Admin)
	assert.Equal(t, "pluginhub-test", claims.Issuer)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	p := testProvider(-time.Minute)

	token, err := p.GenerateToken("admin", true)
	require.NoError(t, err)

	_, err = p.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := testProvider(time.Hour).GenerateToken("admin", true)
	require.NoError(t, err)

	other := NewJWTProvider(&config.AuthConfig{
		JWTSecret:     "a-completely-different-secret-value",
		TokenDuration: time.Hour,
		Issuer:        "pluginhub-test",
	})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := testProvider(time.Hour).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
