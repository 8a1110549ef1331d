package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/cresciperdi/intranet-api/internal/handler/dto"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/cresciperdi/intranet-api/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// --- Моки ---

type MockComplianceWorkflow struct {
	mock.Mock
}

func (m *MockComplianceWorkflow) Status(ctx context.Context, user *entity.Profile, refresh bool) (*compliance.Status, error) {
	args := m.Called(ctx, user, refresh)
	if v, ok := args.Get(0).(*compliance.Status); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceWorkflow) Open(ctx context.Context, user *entity.Profile, contentID uuid.UUID) (*service.OpenResult, error) {
	args := m.Called(ctx, user, contentID)
	if v, ok := args.Get(0).(*service.OpenResult); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceWorkflow) RecordEvent(ctx context.Context, user *entity.Profile, contentID uuid.UUID, event compliance.Event) (*service.SessionView, error) {
	args := m.Called(ctx, user, contentID, event)
	if v, ok := args.Get(0).(*service.SessionView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceWorkflow) SelectAnswer(ctx context.Context, user *entity.Profile, contentID uuid.UUID, index int, option string) (*service.SessionView, error) {
	args := m.Called(ctx, user, contentID, index, option)
	if v, ok := args.Get(0).(*service.SessionView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceWorkflow) SubmitQuiz(ctx context.Context, user *entity.Profile, contentID uuid.UUID, answers map[int]string) (*service.SessionView, error) {
	args := m.Called(ctx, user, contentID, answers)
	if v, ok := args.Get(0).(*service.SessionView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceWorkflow) Confirm(ctx context.Context, user *entity.Profile, contentID uuid.UUID, meta service.ConfirmMeta) (*service.ConfirmResult, error) {
	args := m.Called(ctx, user, contentID, meta)
	if v, ok := args.Get(0).(*service.ConfirmResult); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockContentManager struct {
	mock.Mock
}

func (m *MockContentManager) Create(ctx context.Context, adminID uuid.UUID, input service.ContentInput) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, adminID, input)
	if v, ok := args.Get(0).(*entity.MandatoryContent); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContentManager) Update(ctx context.Context, id uuid.UUID, input service.ContentInput) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, id, input)
	if v, ok := args.Get(0).(*entity.MandatoryContent); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContentManager) SetActive(ctx context.Context, id uuid.UUID, active, notify bool) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, id, active, notify)
	if v, ok := args.Get(0).(*entity.MandatoryContent); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContentManager) GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*entity.MandatoryContent); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContentManager) List(ctx context.Context, filters repository.MandatoryContentFilters, page, pageSize int) (*service.ContentListResponse, error) {
	args := m.Called(ctx, filters, page, pageSize)
	if v, ok := args.Get(0).(*service.ContentListResponse); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockComplianceReporter struct {
	mock.Mock
}

func (m *MockComplianceReporter) Summary(ctx context.Context, contentID uuid.UUID) (*service.ContentSummary, error) {
	args := m.Called(ctx, contentID)
	if v, ok := args.Get(0).(*service.ContentSummary); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceReporter) Signatures(ctx context.Context, contentID uuid.UUID, page, pageSize int) (*service.SignatureListResponse, error) {
	args := m.Called(ctx, contentID, page, pageSize)
	if v, ok := args.Get(0).(*service.SignatureListResponse); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockComplianceReporter) Export(ctx context.Context, contentID uuid.UUID, format string) (*service.ExportFile, error) {
	args := m.Called(ctx, contentID, format)
	if v, ok := args.Get(0).(*service.ExportFile); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotificationReader struct {
	mock.Mock
}

func (m *MockNotificationReader) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) (*service.NotificationListResponse, error) {
	args := m.Called(ctx, userID, unreadOnly, page, pageSize)
	if v, ok := args.Get(0).(*service.NotificationListResponse); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationReader) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationReader) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockNotificationReader) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSettingsManager struct {
	mock.Mock
}

func (m *MockSettingsManager) List(ctx context.Context) ([]entity.AppSetting, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]entity.AppSetting); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsManager) Update(ctx context.Context, adminID uuid.UUID, key, value string) (*entity.AppSetting, error) {
	args := m.Called(ctx, adminID, key, value)
	if v, ok := args.Get(0).(*entity.AppSetting); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(tokenString string) (*auth.Identity, error) {
	args := m.Called(tokenString)
	if v, ok := args.Get(0).(*auth.Identity); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockProfileLoader struct {
	mock.Mock
}

func (m *MockProfileLoader) GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*entity.Profile); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Вспомогательные функции ---

// asUser имитирует RequireAuth
func asUser(profile *entity.Profile) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextProfile, profile)
		c.Set(middleware.ContextUserID, profile.ID)
		c.Next()
	}
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response body should be valid JSON: %s", w.Body.String())
	return resp
}
