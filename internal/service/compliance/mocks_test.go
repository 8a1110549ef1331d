package compliance

import (
	"context"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Моки репозиториев для пакета compliance
// ============================================================================

// MockContentRepo реализует repository.MandatoryContentRepository
type MockContentRepo struct {
	mock.Mock
}

func (m *MockContentRepo) Create(ctx context.Context, content *entity.MandatoryContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *MockContentRepo) Update(ctx context.Context, content *entity.MandatoryContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *MockContentRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MandatoryContent), args.Error(1)
}

func (m *MockContentRepo) ListActiveForAudiences(ctx context.Context, audiences []string) ([]entity.MandatoryContent, error) {
	args := m.Called(ctx, audiences)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MandatoryContent), args.Error(1)
}

func (m *MockContentRepo) List(ctx context.Context, filters repository.MandatoryContentFilters, limit, offset int) ([]entity.MandatoryContent, int64, error) {
	args := m.Called(ctx, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.MandatoryContent), args.Get(1).(int64), args.Error(2)
}

// MockSignatureRepo реализует repository.SignatureRepository
type MockSignatureRepo struct {
	mock.Mock
}

func (m *MockSignatureRepo) Create(ctx context.Context, signature *entity.MandatoryContentSignature) error {
	args := m.Called(ctx, signature)
	return args.Error(0)
}

func (m *MockSignatureRepo) HasSuccessful(ctx context.Context, contentID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, contentID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureRepo) ListByContent(ctx context.Context, contentID uuid.UUID, limit, offset int) ([]entity.MandatoryContentSignature, int64, error) {
	args := m.Called(ctx, contentID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.MandatoryContentSignature), args.Get(1).(int64), args.Error(2)
}

func (m *MockSignatureRepo) ListAllByContent(ctx context.Context, contentID uuid.UUID) ([]entity.MandatoryContentSignature, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MandatoryContentSignature), args.Error(1)
}

func (m *MockSignatureRepo) ListSignedUserIDs(ctx context.Context, contentID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockSignatureRepo) CountByContent(ctx context.Context, contentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, contentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) CompareAndDelete(key string, expected string) (bool, error) {
	args := m.Called(key, expected)
	return args.Bool(0), args.Error(1)
}

// ============================================================================
// Фикстуры
// ============================================================================

func videoContent() *entity.MandatoryContent {
	return &entity.MandatoryContent{
		ID:             uuid.New(),
		Title:          "Política de Segurança",
		Type:           entity.ContentTypeVideo,
		ContentURL:     "https://videos.crescieperdi.com.br/seguranca.mp4",
		TargetAudience: entity.AudienceAmbos,
		Active:         true,
	}
}

func textContent(questions ...entity.QuizQuestion) *entity.MandatoryContent {
	var list *entity.QuizQuestionList
	if questions != nil {
		l := entity.QuizQuestionList(questions)
		list = &l
	}
	return &entity.MandatoryContent{
		ID:             uuid.New(),
		Title:          "Código de Conduta",
		Type:           entity.ContentTypeText,
		ContentText:    "Texto do código de conduta...",
		QuizQuestions:  list,
		TargetAudience: entity.AudienceColaboradores,
		Active:         true,
	}
}

func twoQuestions() []entity.QuizQuestion {
	return []entity.QuizQuestion{
		{Question: "Onde reportar assédio?", Options: []string{"Canal de ética", "Redes sociais"}, CorrectAnswer: "Canal de ética", Explanation: "O canal de ética garante sigilo."},
		{Question: "Brindes acima de R$100 podem ser aceitos?", Options: []string{"Sim", "Não"}, CorrectAnswer: "Não"},
	}
}
