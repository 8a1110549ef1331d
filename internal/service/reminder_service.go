package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ReminderSettingsProvider возвращает настройки напоминаний
type ReminderSettingsProvider interface {
	ComplianceSettings(ctx context.Context) ComplianceSettings
}

// ReminderService рассылает напоминания пользователям без подписи активного контента
type ReminderService struct {
	contentRepo   repository.MandatoryContentRepository
	signatureRepo repository.SignatureRepository
	profileRepo   repository.ProfileRepository
	cacheRepo     repository.CacheRepository
	notifier      Notifier
	settings      ReminderSettingsProvider
	location      *time.Location
	now           func() time.Time
}

// NewReminderService создает сервис напоминаний
func NewReminderService(
	contentRepo repository.MandatoryContentRepository,
	signatureRepo repository.SignatureRepository,
	profileRepo repository.ProfileRepository,
	cacheRepo repository.CacheRepository,
	notifier Notifier,
	settings ReminderSettingsProvider,
	location *time.Location,
) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{
		contentRepo:   contentRepo,
		signatureRepo: signatureRepo,
		profileRepo:   profileRepo,
		cacheRepo:     cacheRepo,
		notifier:      notifier,
		settings:      settings,
		location:      location,
		now:           time.Now,
	}
}

func reminderRunKey(day string) string {
	return fmt.Sprintf("compliance:reminders:%s", day)
}

// RunOnce рассылает напоминания за текущий день. Повторный запуск в тот же день
// (другим экземпляром или после рестарта) пропускается.
func (s *ReminderService) RunOnce(ctx context.Context) (int, error) {
	settings := s.settings.ComplianceSettings(ctx)
	if !settings.RemindersEnabled {
		log.Printf("[ReminderService] Напоминания выключены в настройках, пропуск")
		return 0, nil
	}

	day := s.now().In(s.location).Format("2006-01-02")
	runToken := uuid.NewString()
	acquired, err := s.cacheRepo.SetNX(reminderRunKey(day), runToken, 23*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire reminder run lock: %w", err)
	}
	if !acquired {
		log.Printf("[ReminderService] Напоминания за %s уже отправлены, пропуск", day)
		return 0, nil
	}

	contents, err := s.contentRepo.ListActiveForAudiences(ctx, []string{
		entity.AudienceColaboradores, entity.AudienceFranqueados, entity.AudienceAmbos,
	})
	if err != nil {
		// ничего не отправлено: снимаем отметку, чтобы следующий запуск повторил попытку
		if _, releaseErr := s.cacheRepo.CompareAndDelete(reminderRunKey(day), runToken); releaseErr != nil {
			log.Printf("[ReminderService] Ошибка снятия отметки запуска за %s: %v", day, releaseErr)
		}
		return 0, fmt.Errorf("failed to list active contents: %w", err)
	}

	total := 0
	for i := range contents {
		sent, err := s.remindContent(ctx, &contents[i], settings.ReminderMessage)
		if err != nil {
			log.Printf("[ReminderService] Ошибка напоминаний по контенту %s: %v", contents[i].ID, err)
			continue
		}
		total += sent
	}

	log.Printf("[ReminderService] Отправлено напоминаний: %d (контента: %d)", total, len(contents))
	return total, nil
}

func (s *ReminderService) remindContent(ctx context.Context, content *entity.MandatoryContent, message string) (int, error) {
	profiles, err := s.profileRepo.ListActiveByAudience(ctx, content.TargetAudience)
	if err != nil {
		return 0, err
	}
	signedIDs, err := s.signatureRepo.ListSignedUserIDs(ctx, content.ID)
	if err != nil {
		return 0, err
	}

	signed := make(map[uuid.UUID]struct{}, len(signedIDs))
	for _, id := range signedIDs {
		signed[id] = struct{}{}
	}

	pending := make([]entity.Profile, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := signed[p.ID]; !ok {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	msg := NotificationMessage{
		Title:   fmt.Sprintf("Lembrete: %s", content.Title),
		Message: message,
		Type:    entity.NotificationTypeReminder,
		Link:    compliance.PendingPath(content.ID),
		Metadata: map[string]interface{}{
			"content_id": content.ID.String(),
		},
	}
	if _, err := s.notifier.Dispatch(ctx, pending, msg); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// ReminderScheduler запускает ReminderService по cron-расписанию
type ReminderScheduler struct {
	cron    *cron.Cron
	service *ReminderService
	timeout time.Duration
}

// NewReminderScheduler создает планировщик с расписанием в формате cron (5 полей)
func NewReminderScheduler(service *ReminderService, schedule string, location *time.Location) (*ReminderScheduler, error) {
	if location == nil {
		location = time.UTC
	}
	scheduler := &ReminderScheduler{
		cron:    cron.New(cron.WithLocation(location)),
		service: service,
		timeout: 10 * time.Minute,
	}
	if _, err := scheduler.cron.AddFunc(schedule, scheduler.run); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	return scheduler, nil
}

func (s *ReminderScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.service.RunOnce(ctx); err != nil {
		log.Printf("[ReminderScheduler] Ошибка рассылки напоминаний: %v", err)
	}
}

// Start запускает планировщик в фоне
func (s *ReminderScheduler) Start() {
	s.cron.Start()
	log.Printf("[ReminderScheduler] Планировщик напоминаний запущен, следующий запуск: %v", s.nextRun())
}

// Stop останавливает планировщик и ждёт завершения текущей рассылки
func (s *ReminderScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("[ReminderScheduler] Планировщик напоминаний остановлен")
}

func (s *ReminderScheduler) nextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
