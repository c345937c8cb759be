package impl

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/security"
)

// authService implements service.AuthService against the configured admin
// account. There is no user table; the daemon has exactly one principal.
type authService struct {
	cfg            *config.AuthConfig
	jwtProvider    *security.JWTProvider
	passwordHasher *security.PasswordHasher
	logger         *zap.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	cfg *config.AuthConfig,
	jwtProvider *security.JWTProvider,
	passwordHasher *security.PasswordHasher,
	logger *zap.Logger,
) service.AuthService {
	return &authService{
		cfg:            cfg,
		jwtProvider:    jwtProvider,
		passwordHasher: passwordHasher,
		logger:         logger,
	}
}

func (s *authService) IssueToken(_ context.Context, req *request.TokenRequest) (*response.TokenResponse, error) {
	if !s.cfg.Enabled {
		return nil, service.ErrAuthDisabled
	}

	if req.Username != s.cfg.AdminUser ||
		!s.passwordHasher.Verify(req.Password, s.cfg.AdminPasswordHash) {
		s.logger.Warn("failed login attempt", zap.String("username", req.Username))
		return nil, service.ErrInvalidCredentials
	}

	token, err := s.jwtProvider.GenerateToken(req.Username, true)
	if err != nil {
		return nil, err
	}

	return &response.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtProvider.GetTokenDuration(),
	}, nil
}
