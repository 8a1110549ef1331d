package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// staticChannels возвращает фиксированные настройки каналов
type staticChannels NotificationSettings

func (s staticChannels) NotificationSettings(ctx context.Context) NotificationSettings {
	return NotificationSettings(s)
}

func TestNotificationService_Dispatch_AllChannels(t *testing.T) {
	repo := new(MockNotificationRepository)
	publisher := new(MockPublisher)
	email := new(MockEmailService)
	whatsApp := new(MockWhatsAppService)

	withPhone := *testProfile(entity.RoleColaborador)
	noPhone := *testProfile(entity.RoleFranqueado)
	noPhone.Phone = ""
	recipients := []entity.Profile{withPhone, noPhone}

	msg := NotificationMessage{Title: "Novo conteúdo obrigatório", Message: "Acesse a intranet", Link: "/conteudo-obrigatorio/x"}

	repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(n []entity.Notification) bool {
		return len(n) == 2 && n[0].UserID == withPhone.ID && n[1].UserID == noPhone.ID &&
			n[0].Type == entity.NotificationTypeGeneral && n[0].Link == msg.Link
	})).Return(nil)
	publisher.On("SendToUser", withPhone.ID, websocket.EventNotificationNew, mock.Anything).Return(nil)
	publisher.On("SendToUser", noPhone.ID, websocket.EventNotificationNew, mock.Anything).Return(errors.New("offline"))
	email.On("SendNotification", mock.Anything, withPhone.Email, mock.Anything, mock.Anything).Return(nil)
	email.On("SendNotification", mock.Anything, noPhone.Email, mock.Anything, mock.Anything).Return(nil)
	whatsApp.On("SendMessage", mock.Anything, withPhone.Phone, "Novo conteúdo obrigatório\nAcesse a intranet").Return(nil)

	svc := NewNotificationService(repo,
		staticChannels{PushEnabled: true, EmailEnabled: true, WhatsAppEnabled: true},
		publisher, email, whatsApp)

	report, err := svc.Dispatch(context.Background(), recipients, msg)

	require.NoError(t, err)
	assert.Equal(t, 2, report.InApp)
	assert.Equal(t, 1, report.Push)
	assert.Equal(t, 1, report.FailedPush, "ошибка одного канала не останавливает остальные")
	assert.Equal(t, 2, report.Email)
	assert.Equal(t, 1, report.WhatsApp)
	whatsApp.AssertNumberOfCalls(t, "SendMessage", 1)
	email.AssertExpectations(t)
}

func TestNotificationService_Dispatch_DisabledChannelsSkipped(t *testing.T) {
	repo := new(MockNotificationRepository)
	publisher := new(MockPublisher)
	email := new(MockEmailService)

	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	svc := NewNotificationService(repo, staticChannels{}, publisher, email, nil)

	report, err := svc.Dispatch(context.Background(), []entity.Profile{*testProfile(entity.RoleColaborador)}, NotificationMessage{Title: "T"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.InApp)
	publisher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything)
	email.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Dispatch_InAppFailureIsReturned(t *testing.T) {
	repo := new(MockNotificationRepository)
	publisher := new(MockPublisher)
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewNotificationService(repo, staticChannels{PushEnabled: true}, publisher, nil, nil)

	_, err := svc.Dispatch(context.Background(), []entity.Profile{*testProfile(entity.RoleColaborador)}, NotificationMessage{Title: "T"})

	assert.Error(t, err)
	publisher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_Dispatch_NoRecipients(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewNotificationService(repo, staticChannels{}, nil, nil, nil)

	report, err := svc.Dispatch(context.Background(), nil, NotificationMessage{Title: "T"})

	require.NoError(t, err)
	assert.Zero(t, report.InApp)
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestNotificationService_List_Pagination(t *testing.T) {
	repo := new(MockNotificationRepository)
	userID := uuid.New()
	repo.On("ListByUser", mock.Anything, userID, true, 100, 100).Return([]entity.Notification(nil), int64(150), nil)

	svc := NewNotificationService(repo, staticChannels{}, nil, nil, nil)

	resp, err := svc.List(context.Background(), userID, true, 2, 500)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 100, resp.PerPage, "размер страницы ограничен сверху")
	assert.NotNil(t, resp.Notifications)
	assert.Equal(t, int64(150), resp.Total)
}
