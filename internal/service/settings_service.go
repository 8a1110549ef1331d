package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

const settingsCacheKey = "settings:all"

// DefaultReminderMessage - текст напоминания, если в админке не задан свой
const DefaultReminderMessage = "Você tem um conteúdo obrigatório pendente. Acesse a intranet para concluir."

// NotificationSettings - включённые каналы уведомлений
type NotificationSettings struct {
	PushEnabled     bool `json:"push_enabled"`
	EmailEnabled    bool `json:"email_enabled"`
	WhatsAppEnabled bool `json:"whatsapp_enabled"`
}

// ComplianceSettings - настройки напоминаний об обязательном контенте
type ComplianceSettings struct {
	RemindersEnabled bool   `json:"reminders_enabled"`
	ReminderMessage  string `json:"reminder_message"`
}

// settingKind описывает допустимый ключ настроек
type settingKind struct {
	isBool bool
	maxLen int
}

var allowedSettings = map[string]settingKind{
	entity.SettingPushEnabled:      {isBool: true},
	entity.SettingEmailEnabled:     {isBool: true},
	entity.SettingWhatsAppEnabled:  {isBool: true},
	entity.SettingRemindersEnabled: {isBool: true},
	entity.SettingReminderMessage:  {maxLen: 500},
}

// SettingsService работает с key/value настройками админ-панели
type SettingsService struct {
	settingRepo repository.SettingRepository
	cacheRepo   repository.CacheRepository
	defaults    map[string]string
	cacheTTL    time.Duration
}

// NewSettingsService создает сервис настроек. defaults - значения из конфигурации для отсутствующих ключей.
func NewSettingsService(
	settingRepo repository.SettingRepository,
	cacheRepo repository.CacheRepository,
	notificationDefaults NotificationSettings,
	complianceDefaults ComplianceSettings,
) *SettingsService {
	if complianceDefaults.ReminderMessage == "" {
		complianceDefaults.ReminderMessage = DefaultReminderMessage
	}
	return &SettingsService{
		settingRepo: settingRepo,
		cacheRepo:   cacheRepo,
		cacheTTL:    5 * time.Minute,
		defaults: map[string]string{
			entity.SettingPushEnabled:      cast.ToString(notificationDefaults.PushEnabled),
			entity.SettingEmailEnabled:     cast.ToString(notificationDefaults.EmailEnabled),
			entity.SettingWhatsAppEnabled:  cast.ToString(notificationDefaults.WhatsAppEnabled),
			entity.SettingRemindersEnabled: cast.ToString(complianceDefaults.RemindersEnabled),
			entity.SettingReminderMessage:  complianceDefaults.ReminderMessage,
		},
	}
}

// List возвращает все допустимые настройки, подставляя значения по умолчанию для отсутствующих
func (s *SettingsService) List(ctx context.Context) ([]entity.AppSetting, error) {
	stored, err := s.settingRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]entity.AppSetting, len(stored))
	for _, setting := range stored {
		byKey[setting.Key] = setting
	}

	result := make([]entity.AppSetting, 0, len(allowedSettings))
	for key := range allowedSettings {
		if setting, ok := byKey[key]; ok {
			result = append(result, setting)
			continue
		}
		result = append(result, entity.AppSetting{Key: key, Value: s.defaults[key]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Update сохраняет значение допустимого ключа
func (s *SettingsService) Update(ctx context.Context, adminID uuid.UUID, key, value string) (*entity.AppSetting, error) {
	kind, ok := allowedSettings[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %q", apperrors.ErrValidation, key)
	}

	value = strings.TrimSpace(value)
	if kind.isBool {
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: setting %q expects a boolean", apperrors.ErrValidation, key)
		}
		value = cast.ToString(b)
	} else if kind.maxLen > 0 && len([]rune(value)) > kind.maxLen {
		return nil, fmt.Errorf("%w: setting %q is longer than %d characters", apperrors.ErrValidation, key, kind.maxLen)
	}

	setting := &entity.AppSetting{
		Key:       key,
		Value:     value,
		UpdatedBy: &adminID,
		UpdatedAt: time.Now(),
	}
	if err := s.settingRepo.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	if err := s.cacheRepo.Delete(settingsCacheKey); err != nil {
		log.Printf("[SettingsService] Ошибка сброса кеша настроек: %v", err)
	}

	log.Printf("[SettingsService] Администратор %s изменил настройку %s=%q", adminID, key, value)
	return setting, nil
}

// NotificationSettings возвращает типизированные настройки каналов
func (s *SettingsService) NotificationSettings(ctx context.Context) NotificationSettings {
	values := s.values(ctx)
	return NotificationSettings{
		PushEnabled:     cast.ToBool(values[entity.SettingPushEnabled]),
		EmailEnabled:    cast.ToBool(values[entity.SettingEmailEnabled]),
		WhatsAppEnabled: cast.ToBool(values[entity.SettingWhatsAppEnabled]),
	}
}

// ComplianceSettings возвращает типизированные настройки напоминаний
func (s *SettingsService) ComplianceSettings(ctx context.Context) ComplianceSettings {
	values := s.values(ctx)
	message := values[entity.SettingReminderMessage]
	if message == "" {
		message = DefaultReminderMessage
	}
	return ComplianceSettings{
		RemindersEnabled: cast.ToBool(values[entity.SettingRemindersEnabled]),
		ReminderMessage:  message,
	}
}

// values возвращает значения всех ключей. При ошибке хранилища используются значения по умолчанию.
func (s *SettingsService) values(ctx context.Context) map[string]string {
	var cached map[string]string
	if err := s.cacheRepo.GetJSON(settingsCacheKey, &cached); err == nil && cached != nil {
		return cached
	}

	values := make(map[string]string, len(s.defaults))
	for k, v := range s.defaults {
		values[k] = v
	}

	stored, err := s.settingRepo.List(ctx)
	if err != nil {
		log.Printf("[SettingsService] Ошибка чтения настроек, используются значения по умолчанию: %v", err)
		return values
	}
	for _, setting := range stored {
		if _, ok := allowedSettings[setting.Key]; ok {
			values[setting.Key] = setting.Value
		}
	}

	if err := s.cacheRepo.SetJSON(settingsCacheKey, values, s.cacheTTL); err != nil {
		log.Printf("[SettingsService] Ошибка записи кеша настроек: %v", err)
	}
	return values
}
