package impl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/security"
)

func newAuthFixture(t *testing.T, enabled bool) service.AuthService {
	t.Helper()
	hasher := security.NewPasswordHasher()
	hash, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)

	cfg := &config.AuthConfig{
		Enabled:           enabled,
		AdminUser:         "admin",
		AdminPasswordHash: hash,
		JWTSecret:         "test-secret-key-for-testing-purposes-only",
		TokenDuration:     15 * time.Minute,
		Issuer:            "pluginhub-test",
	}
	return NewAuthService(cfg, security.NewJWTProvider(cfg), hasher, zap.NewNop())
}

func TestIssueTokenSuccess(t *testing.T) {
	svc := newAuthFixture(t, true)

	token, err := svc.IssueToken(context.Background(), &request.TokenRequest{
		Username: "admin",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), token.ExpiresIn)
}

func TestIssueTokenWrongPassword(t *testing.T) {
	svc := newAuthFixture(t, true)

	_, err := svc.IssueToken(context.Background(), &request.TokenRequest{
		Username: "admin",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestIssueTokenUnknownUser(t *testing.T) {
	svc := newAuthFixture(t, true)

	_, err := svc.IssueToken(context.Background(), &request.TokenRequest{
		Username: "root",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestIssueTokenAuthDisabled(t *testing.T) {
	svc := newAuthFixture(t, false)

	_, err := svc.IssueToken(context.Background(), &request.TokenRequest{
		Username: "admin",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, service.ErrAuthDisabled)
}
