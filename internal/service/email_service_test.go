package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmail(t *testing.T) {
	msg := NotificationMessage{Title: "Novo <conteúdo>", Message: "Leia & confirme"}

	assert.Equal(t, "Leia & confirme", renderEmailText(msg, ""))
	assert.Contains(t, renderEmailText(msg, "https://intranet/conteudo-obrigatorio/1"), "Acesse: https://intranet/conteudo-obrigatorio/1")

	body := renderEmailHTML(msg, "https://intranet/x?a=1&b=2")
	assert.Contains(t, body, "Novo &lt;conteúdo&gt;")
	assert.Contains(t, body, "Leia &amp; confirme")
	assert.Contains(t, body, `href="https://intranet/x?a=1&amp;b=2"`)
}

func TestResendRetryDelay(t *testing.T) {
	delay, retry := resendRetryDelay(errors.New("dial tcp: i/o timeout"), 1)
	assert.True(t, retry)
	assert.Equal(t, time.Second, delay)

	_, retry = resendRetryDelay(errors.New("422 invalid from address"), 0)
	assert.False(t, retry)
}

func TestNewResendEmailService_RequiresKeyAndSender(t *testing.T) {
	_, err := NewResendEmailService("", "intranet@crescieperdi.com.br", "")
	assert.Error(t, err)

	_, err = NewResendEmailService("re_test", "", "")
	assert.Error(t, err)

	svc, err := NewResendEmailService("re_test", "intranet@crescieperdi.com.br", "https://intranet.crescieperdi.com.br/")
	assert.NoError(t, err)
	assert.Equal(t, "https://intranet.crescieperdi.com.br", svc.appBaseURL)

	assert.NoError(t, (&NoopEmailService{}).SendNotification(context.Background(), "a@b.c", NotificationMessage{Title: "T"}, "k"))
}
