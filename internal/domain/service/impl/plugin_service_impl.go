package impl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/installer"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// pluginService implements service.PluginService on top of the session.
type pluginService struct {
	session    *reconcile.Session
	uploadsDir string
	logger     *zap.Logger
}

// NewPluginService creates a new PluginService instance
func NewPluginService(session *reconcile.Session, uploadsDir string, logger *zap.Logger) (service.PluginService, error) {
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &pluginService{
		session:    session,
		uploadsDir: uploadsDir,
		logger:     logger,
	}, nil
}

func (s *pluginService) List(_ context.Context) ([]response.PluginResponse, error) {
	diff := s.session.PendingDiff()
	descriptors := s.session.Descriptors()

	out := make([]response.PluginResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, response.NewPluginResponse(d, pendingAction(diff, d.ID)))
	}
	return out, nil
}

func (s *pluginService) Get(_ context.Context, id string) (*response.PluginDetailResponse, error) {
	d, err := s.session.Get(id)
	if err != nil {
		if errors.Is(err, reconcile.ErrPluginNotFound) {
			return nil, service.ErrPluginNotFound
		}
		return nil, err
	}
	return response.NewPluginDetailResponse(d, pendingAction(s.session.PendingDiff(), id)), nil
}

func (s *pluginService) SetEnablement(_ context.Context, id string, action reconcile.EnableAction) (*response.PluginResponse, error) {
	if err := s.session.SetEnabled(id, action); err != nil {
		switch {
		case errors.Is(err, reconcile.ErrPluginNotFound):
			return nil, service.ErrPluginNotFound
		case errors.Is(err, reconcile.ErrNotManageable):
			return nil, service.ErrPluginNotManageable
		case errors.Is(err, reconcile.ErrAlreadyDeleted):
			return nil, service.ErrPluginDeleted
		default:
			return nil, err
		}
	}

	d, err := s.session.Get(id)
	if err != nil {
		return nil, err
	}
	resp := response.NewPluginResponse(d, pendingAction(s.session.PendingDiff(), id))
	return &resp, nil
}

func (s *pluginService) Install(_ context.Context, archive io.Reader) (*response.InstallOperationResponse, error) {
	path := filepath.Join(s.uploadsDir, uuid.New().String()+".zip")
	if err := writeUpload(path, archive); err != nil {
		return nil, fmt.Errorf("failed to save uploaded archive: %w", err)
	}

	m, err := installer.ReadManifest(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidArchive, err)
	}

	_, getErr := s.session.Get(m.ID)
	update := getErr == nil

	info, err := s.session.StartInstall(reconcile.InstallRequest{
		PluginID:    m.ID,
		ArchivePath: path,
		Update:      update,
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("install accepted",
		zap.String("plugin", m.ID),
		zap.String("version", m.Version),
		zap.Bool("update", update),
	)
	resp := response.NewInstallOperationResponse(info)
	return &resp, nil
}

func (s *pluginService) Installing(_ context.Context) []response.InstallOperationResponse {
	infos := s.session.Installing()
	out := make([]response.InstallOperationResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, response.NewInstallOperationResponse(info))
	}
	return out
}

func (s *pluginService) CancelInstall(_ context.Context, id string) error {
	if err := s.session.CancelInstall(id); err != nil {
		if errors.Is(err, reconcile.ErrPluginNotFound) {
			return service.ErrInstallNotFound
		}
		return err
	}
	return nil
}

func (s *pluginService) Uninstall(_ context.Context, id string, force bool) (*response.UninstallResponse, error) {
	restartRequired, err := s.session.Uninstall(id, force)
	if err != nil {
		if errors.Is(err, reconcile.ErrPluginNotFound) {
			return nil, service.ErrPluginNotFound
		}
		// DependentsError and ErrAlreadyDeleted pass through for the
		// controller to map
		return nil, err
	}
	return &response.UninstallResponse{PluginID: id, RestartRequired: restartRequired}, nil
}

func (s *pluginService) Status(_ context.Context) *response.SessionStatusResponse {
	diff := s.session.PendingDiff()
	pending := make(map[string]string, len(diff))
	for id, entry := range diff {
		pending[id] = string(entry.Action)
	}
	return &response.SessionStatusResponse{
		Modified:       s.session.IsModified(),
		NeedsRestart:   s.session.NeedsRestart(),
		PendingChanges: pending,
		Installing:     s.Installing(context.Background()),
	}
}

func (s *pluginService) Apply(ctx context.Context) (*response.ApplyResponse, error) {
	withoutRestart, err := s.session.Apply(ctx)
	if err != nil {
		return nil, err
	}
	return &response.ApplyResponse{
		AppliedWithoutRestart: withoutRestart,
		NeedsRestart:          s.session.NeedsRestart(),
	}, nil
}

func (s *pluginService) Cancel(ctx context.Context) error {
	return s.session.Cancel(ctx)
}

func pendingAction(diff map[string]reconcile.DiffEntry, id string) string {
	if entry, ok := diff[id]; ok {
		return string(entry.Action)
	}
	return ""
}

func writeUpload(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return err
	}
	return f.Sync()
}
