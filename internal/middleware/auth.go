package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/security"
)

// ClaimsKey is the context key for validated token claims
const ClaimsKey = "claims"

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	jwtProvider *security.JWTProvider
	enabled     bool
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(jwtProvider *security.JWTProvider, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtProvider: jwtProvider,
		enabled:     enabled,
	}
}

// Authenticate validates the JWT token and sets the claims in context.
// When authentication is disabled the request passes through untouched.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.NewError[any]("authorization header required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, response.NewError[any]("invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := m.jwtProvider.ValidateToken(parts[1])
		if err != nil {
			switch err {
			case security.ErrExpiredToken:
				c.JSON(http.StatusUnauthorized, response.NewError[any]("token has expired"))
			default:
				c.JSON(http.StatusUnauthorized, response.NewError[any]("invalid token"))
			}
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAdmin checks that the authenticated client has admin rights.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		claims := GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, response.NewError[any]("authentication required"))
			c.Abort()
			return
		}
		if !claims.Admin {
			c.JSON(http.StatusForbidden, response.NewError[any]("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims retrieves the validated claims from context, or nil.
func GetClaims(c *gin.Context) *security.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*security.Claims); ok {
			return claims
		}
	}
	return nil
}
