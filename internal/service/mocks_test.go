package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockContentRepository реализует repository.MandatoryContentRepository
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(ctx context.Context, content *entity.MandatoryContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *MockContentRepository) Update(ctx context.Context, content *entity.MandatoryContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *MockContentRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MandatoryContent), args.Error(1)
}

func (m *MockContentRepository) ListActiveForAudiences(ctx context.Context, audiences []string) ([]entity.MandatoryContent, error) {
	args := m.Called(ctx, audiences)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MandatoryContent), args.Error(1)
}

func (m *MockContentRepository) List(ctx context.Context, filters repository.MandatoryContentFilters, limit, offset int) ([]entity.MandatoryContent, int64, error) {
	args := m.Called(ctx, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.MandatoryContent), args.Get(1).(int64), args.Error(2)
}

// MockSignatureRepository реализует repository.SignatureRepository
type MockSignatureRepository struct {
	mock.Mock
}

func (m *MockSignatureRepository) Create(ctx context.Context, signature *entity.MandatoryContentSignature) error {
	args := m.Called(ctx, signature)
	return args.Error(0)
}

func (m *MockSignatureRepository) HasSuccessful(ctx context.Context, contentID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contentID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureRepository) ListByContent(ctx context.Context, contentID uuid.UUID, limit, offset int) ([]entity.MandatoryContentSignature, int64, error) {
	args := m.Called(ctx, contentID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.MandatoryContentSignature), args.Get(1).(int64), args.Error(2)
}

func (m *MockSignatureRepository) ListAllByContent(ctx context.Context, contentID uuid.UUID) ([]entity.MandatoryContentSignature, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MandatoryContentSignature), args.Error(1)
}

func (m *MockSignatureRepository) ListSignedUserIDs(ctx context.Context, contentID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockSignatureRepository) CountByContent(ctx context.Context, contentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, contentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockProfileRepository реализует repository.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListActiveByAudience(ctx context.Context, audience string) ([]entity.Profile, error) {
	args := m.Called(ctx, audience)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Profile), args.Error(1)
}

// MockNotificationRepository реализует repository.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []entity.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]entity.Notification, int64, error) {
	args := m.Called(ctx, userID, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingRepository реализует repository.SettingRepository
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) List(ctx context.Context) ([]entity.AppSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AppSetting), args.Error(1)
}

func (m *MockSettingRepository) Get(ctx context.Context, key string) (*entity.AppSetting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AppSetting), args.Error(1)
}

func (m *MockSettingRepository) Upsert(ctx context.Context, setting *entity.AppSetting) error {
	args := m.Called(ctx, setting)
	return args.Error(0)
}

// ============================================================================
// Моки каналов доставки
// ============================================================================

// MockPublisher реализует RealtimePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) SendToUser(userID uuid.UUID, eventType string, data interface{}) error {
	args := m.Called(userID, eventType, data)
	return args.Error(0)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendNotification(ctx context.Context, toEmail string, msg NotificationMessage, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, msg, idempotencyKey)
	return args.Error(0)
}

// MockWhatsAppService реализует WhatsAppService
type MockWhatsAppService struct {
	mock.Mock
}

func (m *MockWhatsAppService) SendMessage(ctx context.Context, phone, text string) error {
	args := m.Called(ctx, phone, text)
	return args.Error(0)
}

// MockNotifier реализует Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(ctx context.Context, recipients []entity.Profile, msg NotificationMessage) (*DispatchReport, error) {
	args := m.Called(ctx, recipients, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DispatchReport), args.Error(1)
}

// staticIPResolver возвращает заранее заданный адрес
type staticIPResolver struct {
	ip string
}

func (r staticIPResolver) Resolve(requestIP, reportedIP string) string {
	return r.ip
}

// recordingInvalidator запоминает пользователей, чей статус сброшен
type recordingInvalidator struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (r *recordingInvalidator) InvalidateStatus(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

// ============================================================================
// Кеш в памяти
// ============================================================================

// memoryCache - потокобезопасная реализация repository.CacheRepository для тестов.
// Значения хранятся в JSON, как в Redis, поэтому сессии проходят реальную сериализацию.
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	// failGet: если задано, GetJSON возвращает эту ошибку
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (c *memoryCache) Set(key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = toString(value)
	return nil
}

func (c *memoryCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (c *memoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = string(data)
	return nil
}

func (c *memoryCache) GetJSON(key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return c.failGet
	}
	v, ok := c.data[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal([]byte(v), dest)
}

func (c *memoryCache) Exists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = toString(value)
	return true, nil
}

func (c *memoryCache) CompareAndDelete(key string, expected string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data[key] != expected {
		return false, nil
	}
	delete(c.data, key)
	return true, nil
}

func (c *memoryCache) has(key string) bool {
	ok, _ := c.Exists(key)
	return ok
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, _ := json.Marshal(v)
	return string(data)
}

// ============================================================================
// Фикстуры
// ============================================================================

func testProfile(role string) *entity.Profile {
	return &entity.Profile{
		ID:       uuid.New(),
		FullName: "Maria Souza",
		Email:    "maria@crescieperdi.com.br",
		Phone:    "+55 (11) 98888-7777",
		Role:     role,
		Active:   true,
	}
}

func testVideoContent() *entity.MandatoryContent {
	return &entity.MandatoryContent{
		ID:             uuid.New(),
		Title:          "Boas-vindas 2025",
		Type:           entity.ContentTypeVideo,
		ContentURL:     "https://videos.crescieperdi.com.br/boas-vindas.mp4",
		TargetAudience: entity.AudienceAmbos,
		Active:         true,
		CreatedAt:      time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func testTextContent(questions ...entity.QuizQuestion) *entity.MandatoryContent {
	var list *entity.QuizQuestionList
	if questions != nil {
		l := entity.QuizQuestionList(questions)
		list = &l
	}
	return &entity.MandatoryContent{
		ID:             uuid.New(),
		Title:          "Política de Privacidade",
		Type:           entity.ContentTypeText,
		ContentText:    "Tratamos dados pessoais conforme a LGPD...",
		QuizQuestions:  list,
		TargetAudience: entity.AudienceColaboradores,
		Active:         true,
		CreatedAt:      time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC),
	}
}

func privacyQuestions() []entity.QuizQuestion {
	return []entity.QuizQuestion{
		{Question: "Dados de clientes podem ser enviados por WhatsApp pessoal?", Options: []string{"Sim", "Não"}, CorrectAnswer: "Não", Explanation: "Use apenas canais corporativos."},
		{Question: "Quem é o encarregado de dados?", Options: []string{"DPO", "Gerente da loja", "Qualquer colaborador"}, CorrectAnswer: "DPO"},
	}
}
