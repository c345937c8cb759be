package service

import (
	"context"
	"net/http"

	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
	apperrors "github.com/lumenide/pluginhub/pkg/errors"
)

var (
	ErrInvalidCredentials = apperrors.New(apperrors.CodeUnauthorized, "invalid credentials", http.StatusUnauthorized)
	ErrAuthDisabled       = apperrors.New(apperrors.CodeNotFound, "authentication is disabled", http.StatusNotFound)
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// IssueToken authenticates the admin user and returns an access token
	IssueToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error)
}
