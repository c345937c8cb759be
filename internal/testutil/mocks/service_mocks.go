package mocks

import (
	"context"
	"io"
	"time"

	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	IssueTokenFunc func(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error)
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) IssueToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(ctx, req)
	}
	return &response.TokenResponse{
		AccessToken: "mock-access-token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

// MockPluginService is a mock implementation of PluginService
type MockPluginService struct {
	ListFunc          func(ctx context.Context) ([]response.PluginResponse, error)
	GetFunc           func(ctx context.Context, id string) (*response.PluginDetailResponse, error)
	SetEnablementFunc func(ctx context.Context, id string, action reconcile.EnableAction) (*response.PluginResponse, error)
	InstallFunc       func(ctx context.Context, archive io.Reader) (*response.InstallOperationResponse, error)
	InstallingFunc    func(ctx context.Context) []response.InstallOperationResponse
	CancelInstallFunc func(ctx context.Context, id string) error
	UninstallFunc     func(ctx context.Context, id string, force bool) (*response.UninstallResponse, error)
	StatusFunc        func(ctx context.Context) *response.SessionStatusResponse
	ApplyFunc         func(ctx context.Context) (*response.ApplyResponse, error)
	CancelFunc        func(ctx context.Context) error
}

func NewMockPluginService() *MockPluginService {
	return &MockPluginService{}
}

func (m *MockPluginService) List(ctx context.Context) ([]response.PluginResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []response.PluginResponse{
		{
			ID:      "com.example.tool",
			Name:    "Example Tool",
			Version: "1.0.0",
			State:   "ENABLED",
			Dynamic: true,
		},
	}, nil
}

func (m *MockPluginService) Get(ctx context.Context, id string) (*response.PluginDetailResponse, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &response.PluginDetailResponse{
		PluginResponse: response.PluginResponse{
			ID:      id,
			Name:    "Example Tool",
			Version: "1.0.0",
			State:   "ENABLED",
			Dynamic: true,
		},
	}, nil
}

func (m *MockPluginService) SetEnablement(ctx context.Context, id string, action reconcile.EnableAction) (*response.PluginResponse, error) {
	if m.SetEnablementFunc != nil {
		return m.SetEnablementFunc(ctx, id, action)
	}
	return &response.PluginResponse{
		ID:            id,
		Name:          "Example Tool",
		Version:       "1.0.0",
		State:         "ENABLED",
		PendingAction: string(action),
	}, nil
}

func (m *MockPluginService) Install(ctx context.Context, archive io.Reader) (*response.InstallOperationResponse, error) {
	if m.InstallFunc != nil {
		return m.InstallFunc(ctx, archive)
	}
	return &response.InstallOperationResponse{
		OpID:      "mock-op-id",
		PluginID:  "com.example.tool",
		Phase:     "DOWNLOADING",
		StartedAt: time.Now(),
	}, nil
}

func (m *MockPluginService) Installing(ctx context.Context) []response.InstallOperationResponse {
	if m.InstallingFunc != nil {
		return m.InstallingFunc(ctx)
	}
	return nil
}

func (m *MockPluginService) CancelInstall(ctx context.Context, id string) error {
	if m.CancelInstallFunc != nil {
		return m.CancelInstallFunc(ctx, id)
	}
	return nil
}

func (m *MockPluginService) Uninstall(ctx context.Context, id string, force bool) (*response.UninstallResponse, error) {
	if m.UninstallFunc != nil {
		return m.UninstallFunc(ctx, id, force)
	}
	return &response.UninstallResponse{
		PluginID:        id,
		RestartRequired: false,
	}, nil
}

func (m *MockPluginService) Status(ctx context.Context) *response.SessionStatusResponse {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &response.SessionStatusResponse{}
}

func (m *MockPluginService) Apply(ctx context.Context) (*response.ApplyResponse, error) {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx)
	}
	return &response.ApplyResponse{AppliedWithoutRestart: true}, nil
}

func (m *MockPluginService) Cancel(ctx context.Context) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx)
	}
	return nil
}
