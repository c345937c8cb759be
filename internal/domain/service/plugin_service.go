package service

import (
	"context"
	"io"
	"net/http"

	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/reconcile"
	apperrors "github.com/lumenide/pluginhub/pkg/errors"
)

var (
	ErrPluginNotFound      = apperrors.New(apperrors.CodeNotFound, "plugin not found", http.StatusNotFound)
	ErrInstallNotFound     = apperrors.New(apperrors.CodeNotFound, "no install in progress for plugin", http.StatusNotFound)
	ErrPluginNotManageable = apperrors.New(apperrors.CodeBadRequest, "plugin cannot be enabled or disabled", http.StatusBadRequest)
	ErrPluginDeleted       = apperrors.New(apperrors.CodeConflict, "plugin is marked for uninstall", http.StatusConflict)
	ErrInvalidArchive      = apperrors.New(apperrors.CodeBadRequest, "invalid plugin archive", http.StatusBadRequest)
)

// PluginService defines the interface for plugin session operations
type PluginService interface {
	// List retrieves every known plugin with its pending action, if any
	List(ctx context.Context) ([]response.PluginResponse, error)

	// Get retrieves one plugin by id
	Get(ctx context.Context, id string) (*response.PluginDetailResponse, error)

	// SetEnablement records a pending enable or disable
	SetEnablement(ctx context.Context, id string, action reconcile.EnableAction) (*response.PluginResponse, error)

	// Install stages an uploaded archive and starts a background install
	Install(ctx context.Context, archive io.Reader) (*response.InstallOperationResponse, error)

	// Installing lists the in-flight install operations
	Installing(ctx context.Context) []response.InstallOperationResponse

	// CancelInstall aborts the in-flight install for a plugin id
	CancelInstall(ctx context.Context, id string) error

	// Uninstall marks a plugin for removal
	Uninstall(ctx context.Context, id string, force bool) (*response.UninstallResponse, error)

	// Status summarizes the pending state of the session
	Status(ctx context.Context) *response.SessionStatusResponse

	// Apply commits all pending changes
	Apply(ctx context.Context) (*response.ApplyResponse, error)

	// Cancel discards all pending changes
	Cancel(ctx context.Context) error
}
