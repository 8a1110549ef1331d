package compliance

import (
	"context"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/google/uuid"
)

// Gate определяет, есть ли у пользователя непройденный обязательный контент
type Gate struct {
	contentRepo   repository.MandatoryContentRepository
	signatureRepo repository.SignatureRepository
}

// NewGate создает новый гейт
func NewGate(contentRepo repository.MandatoryContentRepository, signatureRepo repository.SignatureRepository) *Gate {
	return &Gate{
		contentRepo:   contentRepo,
		signatureRepo: signatureRepo,
	}
}

// PendingResult - результат проверки гейта
type PendingResult struct {
	Content  *entity.MandatoryContent
	Degraded bool
}

// FindPending возвращает первый активный контент аудитории пользователя без успешной подписи.
// Проверка последовательная, в порядке создания; гейт только читает.
// При ошибке чтения гейт открывается: результат "нет непройденного" с Degraded=true.
func (g *Gate) FindPending(ctx context.Context, userID uuid.UUID, audience string) PendingResult {
	contents, err := g.contentRepo.ListActiveForAudiences(ctx, []string{audience, entity.AudienceAmbos})
	if err != nil {
		log.Printf("[ComplianceGate] Ошибка получения контента для пользователя %s, доступ открыт (fail-open): %v", userID, err)
		return PendingResult{Degraded: true}
	}

	for i := range contents {
		signed, err := g.signatureRepo.HasSuccessful(ctx, contents[i].ID, userID)
		if err != nil {
			log.Printf("[ComplianceGate] Ошибка проверки подписи контента %s пользователя %s, доступ открыт (fail-open): %v",
				contents[i].ID, userID, err)
			return PendingResult{Degraded: true}
		}
		if !signed {
			return PendingResult{Content: &contents[i]}
		}
	}

	return PendingResult{}
}

// StatusFrom строит статус соответствия по результату гейта
func StatusFrom(result PendingResult, now time.Time) *Status {
	if result.Content == nil {
		return &Status{
			Pending:   false,
			State:     StateNoPending,
			Degraded:  result.Degraded,
			CheckedAt: now,
		}
	}

	id := result.Content.ID
	return &Status{
		Pending:    true,
		State:      StateConsuming,
		ContentID:  &id,
		Title:      result.Content.Title,
		Type:       result.Content.Type,
		RedirectTo: PendingPath(id),
		CheckedAt:  now,
	}
}
