package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
)

// AuthController handles token issuance
type AuthController struct {
	authService service.AuthService
}

// NewAuthController creates a new AuthController instance
func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// RegisterRoutes registers the auth routes
func (c *AuthController) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/token", c.Token)
	}
}

// Token authenticates the admin user and returns an access token
func (c *AuthController) Token(ctx *gin.Context) {
	var req request.TokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("username and password are required"))
		return
	}

	token, err := c.authService.IssueToken(ctx.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			ctx.JSON(http.StatusUnauthorized, response.NewError[any]("invalid credentials"))
		case errors.Is(err, service.ErrAuthDisabled):
			ctx.JSON(http.StatusNotFound, response.NewError[any]("authentication is disabled"))
		default:
			ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to issue token"))
		}
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(token))
}
