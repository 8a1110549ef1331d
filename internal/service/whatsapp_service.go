package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WhatsAppService отправляет сообщения через HTTP-шлюз WhatsApp
type WhatsAppService interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// NoopWhatsAppService используется, когда шлюз не настроен
type NoopWhatsAppService struct{}

func (s *NoopWhatsAppService) SendMessage(ctx context.Context, phone, text string) error {
	log.Printf("[WhatsAppService] noop send to=%s", phone)
	return nil
}

// GatewayWhatsAppService отправляет сообщения POST-запросом на шлюз
type GatewayWhatsAppService struct {
	client     *resty.Client
	gatewayURL string
}

type whatsAppMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewGatewayWhatsAppService создает клиента шлюза с таймаутом и повторами на 5xx
func NewGatewayWhatsAppService(gatewayURL, token string, timeout time.Duration) (*GatewayWhatsAppService, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("whatsapp gateway url is required")
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &GatewayWhatsAppService{client: client, gatewayURL: gatewayURL}, nil
}

func (s *GatewayWhatsAppService) SendMessage(ctx context.Context, phone, text string) error {
	phone = normalizePhone(phone)
	if phone == "" {
		return fmt.Errorf("phone is required")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(whatsAppMessageRequest{Phone: phone, Message: text}).
		Post(s.gatewayURL)
	if err != nil {
		return fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp gateway returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// normalizePhone оставляет только цифры (формат E.164 без "+")
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
