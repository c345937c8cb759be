package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/middleware"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// SessionController handles apply and cancel of the pending session state
type SessionController struct {
	pluginService  service.PluginService
	authMiddleware *middleware.AuthMiddleware
}

// NewSessionController creates a new SessionController instance
func NewSessionController(pluginService service.PluginService, authMiddleware *middleware.AuthMiddleware) *SessionController {
	return &SessionController{
		pluginService:  pluginService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the session routes
func (c *SessionController) RegisterRoutes(router *gin.RouterGroup) {
	session := router.Group("/session")
	session.Use(c.authMiddleware.Authenticate())
	{
		session.GET("", c.Status)
		session.POST("/apply", c.authMiddleware.RequireAdmin(), c.Apply)
		session.POST("/cancel", c.authMiddleware.RequireAdmin(), c.Cancel)
	}
}

// Status summarizes the pending state of the session
func (c *SessionController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(c.pluginService.Status(ctx.Request.Context())))
}

// Apply commits all pending changes. A dependency validation failure
// returns 422 with the missing plugin names; nothing is committed then.
func (c *SessionController) Apply(ctx *gin.Context) {
	result, err := c.pluginService.Apply(ctx.Request.Context())
	if err != nil {
		var verr *reconcile.ValidationError
		if errors.As(err, &verr) {
			ctx.JSON(http.StatusUnprocessableEntity, response.NewErrorWithDetails[any](
				verr.Error(), verr.Missing))
			return
		}
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to apply changes"))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess(result, "changes applied"))
}

// Cancel discards all pending changes
func (c *SessionController) Cancel(ctx *gin.Context) {
	if err := c.pluginService.Cancel(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to cancel changes"))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "changes discarded"))
}
