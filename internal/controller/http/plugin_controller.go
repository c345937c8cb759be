package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/middleware"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// PluginController handles plugin management endpoints
type PluginController struct {
	pluginService  service.PluginService
	authMiddleware *middleware.AuthMiddleware
}

// NewPluginController creates a new PluginController instance
func NewPluginController(pluginService service.PluginService, authMiddleware *middleware.AuthMiddleware) *PluginController {
	return &PluginController{
		pluginService:  pluginService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the plugin routes
func (c *PluginController) RegisterRoutes(router *gin.RouterGroup) {
	plugins := router.Group("/plugins")
	plugins.Use(c.authMiddleware.Authenticate())
	{
		plugins.GET("", c.List)
		plugins.GET("/installing", c.Installing)
		plugins.GET("/:id", c.Get)
		plugins.POST("", c.authMiddleware.RequireAdmin(), c.Install)
		plugins.POST("/:id/enablement", c.authMiddleware.RequireAdmin(), c.SetEnablement)
		plugins.DELETE("/:id/install", c.authMiddleware.RequireAdmin(), c.CancelInstall)
		plugins.DELETE("/:id", c.authMiddleware.RequireAdmin(), c.Uninstall)
	}
}

// List retrieves all known plugins with their pending actions
func (c *PluginController) List(ctx *gin.Context) {
	plugins, err := c.pluginService.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to fetch plugins"))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(plugins))
}

// Get retrieves one plugin by id
func (c *PluginController) Get(ctx *gin.Context) {
	plugin, err := c.pluginService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPluginNotFound) {
			ctx.JSON(http.StatusNotFound, response.NewError[any]("plugin not found"))
			return
		}
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to fetch plugin"))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(plugin))
}

// Install accepts a plugin archive upload and starts a background install
func (c *PluginController) Install(ctx *gin.Context) {
	file, _, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("plugin archive is required"))
		return
	}
	defer file.Close()

	op, err := c.pluginService.Install(ctx.Request.Context(), file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidArchive) {
			ctx.JSON(http.StatusBadRequest, response.NewError[any](err.Error()))
			return
		}
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to start install"))
		return
	}

	ctx.JSON(http.StatusAccepted, response.NewSuccess(op, "install started"))
}

// Installing lists in-flight install operations
func (c *PluginController) Installing(ctx *gin.Context) {
	ops := c.pluginService.Installing(ctx.Request.Context())
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(ops))
}

// CancelInstall aborts the in-flight install for a plugin
func (c *PluginController) CancelInstall(ctx *gin.Context) {
	if err := c.pluginService.CancelInstall(ctx.Request.Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, service.ErrInstallNotFound) {
			ctx.JSON(http.StatusNotFound, response.NewError[any]("no install in progress for plugin"))
			return
		}
		ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to cancel install"))
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess[any](nil, "install cancelled"))
}

// SetEnablement records a pending enable or disable for a plugin
func (c *PluginController) SetEnablement(ctx *gin.Context) {
	var req request.SetEnablementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.NewError[any]("action must be ENABLE or DISABLE"))
		return
	}

	plugin, err := c.pluginService.SetEnablement(ctx.Request.Context(), ctx.Param("id"), reconcile.EnableAction(req.Action))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPluginNotFound):
			ctx.JSON(http.StatusNotFound, response.NewError[any]("plugin not found"))
		case errors.Is(err, service.ErrPluginNotManageable):
			ctx.JSON(http.StatusBadRequest, response.NewError[any]("plugin cannot be enabled or disabled"))
		case errors.Is(err, service.ErrPluginDeleted):
			ctx.JSON(http.StatusConflict, response.NewError[any]("plugin is marked for uninstall"))
		default:
			ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to record change"))
		}
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccessWithData(plugin))
}

// Uninstall marks a plugin for removal
func (c *PluginController) Uninstall(ctx *gin.Context) {
	force := ctx.Query("force") == "true"

	result, err := c.pluginService.Uninstall(ctx.Request.Context(), ctx.Param("id"), force)
	if err != nil {
		var dependents *reconcile.DependentsError
		switch {
		case errors.Is(err, service.ErrPluginNotFound):
			ctx.JSON(http.StatusNotFound, response.NewError[any]("plugin not found"))
		case errors.As(err, &dependents):
			ctx.JSON(http.StatusConflict, response.NewErrorWithDetails[any](
				"enabled plugins depend on this plugin", dependents.Dependents))
		case errors.Is(err, reconcile.ErrAlreadyDeleted):
			ctx.JSON(http.StatusConflict, response.NewError[any]("plugin is already marked for uninstall"))
		default:
			ctx.JSON(http.StatusInternalServerError, response.NewError[any]("failed to uninstall plugin"))
		}
		return
	}
	ctx.JSON(http.StatusOK, response.NewSuccess(result, "uninstall requested"))
}
