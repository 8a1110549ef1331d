package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService отправляет письма-уведомления
type EmailService interface {
	SendNotification(ctx context.Context, toEmail string, msg NotificationMessage, idempotencyKey string) error
}

// NoopEmailService используется, когда ключ Resend не настроен
type NoopEmailService struct{}

func (s *NoopEmailService) SendNotification(ctx context.Context, toEmail string, msg NotificationMessage, idempotencyKey string) error {
	log.Printf("[EmailService] noop send notification to=%s title=%q", toEmail, msg.Title)
	return nil
}

// ResendEmailService отправляет письма через Resend REST API
type ResendEmailService struct {
	from       string
	appBaseURL string
	client     *resend.Client
}

func NewResendEmailService(apiKey, from, appBaseURL string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:       from,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		client:     resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendNotification(ctx context.Context, toEmail string, msg NotificationMessage, idempotencyKey string) error {
	if toEmail == "" || msg.Title == "" {
		return fmt.Errorf("toEmail and title are required")
	}

	link := ""
	if msg.Link != "" {
		link = s.appBaseURL + msg.Link
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: msg.Title,
		Text:    renderEmailText(msg, link),
		Html:    renderEmailHTML(msg, link),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func renderEmailText(msg NotificationMessage, link string) string {
	if link == "" {
		return msg.Message
	}
	return fmt.Sprintf("%s\n\nAcesse: %s", msg.Message, link)
}

func renderEmailHTML(msg NotificationMessage, link string) string {
	body := fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(msg.Title), html.EscapeString(msg.Message))
	if link != "" {
		body += fmt.Sprintf(`<p><a href="%s">Acessar a intranet</a></p>`, html.EscapeString(link))
	}
	return body
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
