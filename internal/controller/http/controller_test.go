package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/dto/request"
	"github.com/lumenide/pluginhub/internal/dto/response"
	"github.com/lumenide/pluginhub/internal/middleware"
	"github.com/lumenide/pluginhub/internal/reconcile"
	"github.com/lumenide/pluginhub/internal/security"
	"github.com/lumenide/pluginhub/internal/testutil/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthMiddleware() *middleware.AuthMiddleware {
	jwtProvider := security.NewJWTProvider(&config.AuthConfig{
		JWTSecret:     "test-secret-key-for-testing-purposes-only",
		TokenDuration: 15 * time.Minute,
		Issuer:        "test",
	})
	// auth disabled: requests pass straight through to the handlers
	return middleware.NewAuthMiddleware(jwtProvider, false)
}

func setupPluginRouter(pluginService service.PluginService) *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	NewPluginController(pluginService, setupAuthMiddleware()).RegisterRoutes(api)
	NewSessionController(pluginService, setupAuthMiddleware()).RegisterRoutes(api)
	return router
}

// Plugin Controller Tests

func TestPluginController_List(t *testing.T) {
	router := setupPluginRouter(mocks.NewMockPluginService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("List() status = %v, want %v", w.Code, http.StatusOK)
	}

	var resp response.ApiResponse[[]response.PluginResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("List() success = false, want true")
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "com.example.tool" {
		t.Errorf("List() data = %+v, want one plugin com.example.tool", resp.Data)
	}
}

func TestPluginController_Get_NotFound(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.GetFunc = func(_ context.Context, _ string) (*response.PluginDetailResponse, error) {
		return nil, service.ErrPluginNotFound
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins/com.example.missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Get() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestPluginController_SetEnablement_Success(t *testing.T) {
	var gotID string
	var gotAction reconcile.EnableAction
	pluginService := mocks.NewMockPluginService()
	pluginService.SetEnablementFunc = func(_ context.Context, id string, action reconcile.EnableAction) (*response.PluginResponse, error) {
		gotID, gotAction = id, action
		return &response.PluginResponse{ID: id, PendingAction: string(action)}, nil
	}
	router := setupPluginRouter(pluginService)

	body := `{"action":"DISABLE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/com.example.tool/enablement", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("SetEnablement() status = %v, want %v", w.Code, http.StatusOK)
	}
	if gotID != "com.example.tool" || gotAction != reconcile.ActionDisable {
		t.Errorf("SetEnablement() called with (%q, %q)", gotID, gotAction)
	}
}

func TestPluginController_SetEnablement_InvalidAction(t *testing.T) {
	router := setupPluginRouter(mocks.NewMockPluginService())

	body := `{"action":"TOGGLE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/com.example.tool/enablement", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("SetEnablement() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestPluginController_SetEnablement_NotManageable(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.SetEnablementFunc = func(_ context.Context, _ string, _ reconcile.EnableAction) (*response.PluginResponse, error) {
		return nil, service.ErrPluginNotManageable
	}
	router := setupPluginRouter(pluginService)

	body := `{"action":"DISABLE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/host.platform/enablement", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("SetEnablement() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestPluginController_SetEnablement_MarkedForUninstall(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.SetEnablementFunc = func(_ context.Context, _ string, _ reconcile.EnableAction) (*response.PluginResponse, error) {
		return nil, service.ErrPluginDeleted
	}
	router := setupPluginRouter(pluginService)

	body := `{"action":"ENABLE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/com.example.tool/enablement", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("SetEnablement() status = %v, want %v", w.Code, http.StatusConflict)
	}
}

func TestPluginController_Install_Accepted(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	router := setupPluginRouter(pluginService)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "com.example.tool.zip")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("archive bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Install() status = %v, want %v", w.Code, http.StatusAccepted)
	}
}

func TestPluginController_Install_MissingFile(t *testing.T) {
	router := setupPluginRouter(mocks.NewMockPluginService())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins", bytes.NewBufferString("not multipart"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Install() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestPluginController_Install_InvalidArchive(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.InstallFunc = func(_ context.Context, _ io.Reader) (*response.InstallOperationResponse, error) {
		return nil, service.ErrInvalidArchive
	}
	router := setupPluginRouter(pluginService)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "broken.zip")
	fw.Write([]byte("junk"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Install() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestPluginController_CancelInstall_NotFound(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.CancelInstallFunc = func(_ context.Context, _ string) error {
		return service.ErrInstallNotFound
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/plugins/com.example.tool/install", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("CancelInstall() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestPluginController_Uninstall_Conflict(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.UninstallFunc = func(_ context.Context, id string, _ bool) (*response.UninstallResponse, error) {
		return nil, &reconcile.DependentsError{PluginID: id, Dependents: []string{"com.example.dependent"}}
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/plugins/com.example.tool", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Uninstall() status = %v, want %v", w.Code, http.StatusConflict)
	}

	var resp response.ApiResponse[any]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("Uninstall() success = true, want false")
	}
}

func TestPluginController_Uninstall_Force(t *testing.T) {
	var gotForce bool
	pluginService := mocks.NewMockPluginService()
	pluginService.UninstallFunc = func(_ context.Context, id string, force bool) (*response.UninstallResponse, error) {
		gotForce = force
		return &response.UninstallResponse{PluginID: id, RestartRequired: true}, nil
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/plugins/com.example.tool?force=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Uninstall() status = %v, want %v", w.Code, http.StatusOK)
	}
	if !gotForce {
		t.Error("Uninstall() force = false, want true")
	}
}

// Session Controller Tests

func TestSessionController_Status(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.StatusFunc = func(_ context.Context) *response.SessionStatusResponse {
		return &response.SessionStatusResponse{
			Modified:       true,
			PendingChanges: map[string]string{"com.example.tool": "DISABLE"},
		}
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status() status = %v, want %v", w.Code, http.StatusOK)
	}

	var resp response.ApiResponse[response.SessionStatusResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Data.Modified {
		t.Error("Status() modified = false, want true")
	}
}

func TestSessionController_Apply_Success(t *testing.T) {
	router := setupPluginRouter(mocks.NewMockPluginService())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/apply", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Apply() status = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestSessionController_Apply_ValidationFailure(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.ApplyFunc = func(_ context.Context) (*response.ApplyResponse, error) {
		return nil, &reconcile.ValidationError{Missing: []string{"Example Library"}}
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/apply", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Apply() status = %v, want %v", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestSessionController_Cancel(t *testing.T) {
	var cancelled bool
	pluginService := mocks.NewMockPluginService()
	pluginService.CancelFunc = func(_ context.Context) error {
		cancelled = true
		return nil
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Cancel() status = %v, want %v", w.Code, http.StatusOK)
	}
	if !cancelled {
		t.Error("Cancel() never reached the service")
	}
}

// Auth Controller Tests

func TestAuthController_Token_Success(t *testing.T) {
	router := gin.New()
	api := router.Group("/api/v1")
	NewAuthController(mocks.NewMockAuthService()).RegisterRoutes(api)

	body := `{"username":"admin","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Token() status = %v, want %v", w.Code, http.StatusOK)
	}

	var resp response.ApiResponse[response.TokenResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.AccessToken == "" {
		t.Error("Token() returned empty access token")
	}
}

func TestAuthController_Token_InvalidCredentials(t *testing.T) {
	authService := mocks.NewMockAuthService()
	authService.IssueTokenFunc = func(_ context.Context, _ *request.TokenRequest) (*response.TokenResponse, error) {
		return nil, service.ErrInvalidCredentials
	}
	router := gin.New()
	api := router.Group("/api/v1")
	NewAuthController(authService).RegisterRoutes(api)

	body := `{"username":"admin","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Token() status = %v, want %v", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthController_Token_Disabled(t *testing.T) {
	authService := mocks.NewMockAuthService()
	authService.IssueTokenFunc = func(_ context.Context, _ *request.TokenRequest) (*response.TokenResponse, error) {
		return nil, service.ErrAuthDisabled
	}
	router := gin.New()
	api := router.Group("/api/v1")
	NewAuthController(authService).RegisterRoutes(api)

	body := `{"username":"admin","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Token() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestPluginController_InternalError(t *testing.T) {
	pluginService := mocks.NewMockPluginService()
	pluginService.ListFunc = func(_ context.Context) ([]response.PluginResponse, error) {
		return nil, errors.New("session is closed")
	}
	router := setupPluginRouter(pluginService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("List() status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}
