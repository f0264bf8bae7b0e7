package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"huddle-cli/internal/discussion"
)

// MailClient delivers mention/reply notifications through an
// EmailJS-compatible send endpoint. It satisfies discussion.Mailer.
//
// A zero ServiceID disables delivery: SendNotification becomes a no-op so
// unconfigured installs degrade silently instead of erroring on every send.
type MailClient struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string

	http *http.Client
}

const defaultMailEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

func NewMailClient(serviceID, templateID, publicKey string) *MailClient {
	return &MailClient{
		Endpoint:   defaultMailEndpoint,
		ServiceID:  serviceID,
		TemplateID: templateID,
		PublicKey:  publicKey,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type mailSend struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

func (m *MailClient) SendNotification(ctx context.Context, n discussion.Notification) error {
	if m.ServiceID == "" {
		return nil
	}
	payload := mailSend{
		ServiceID:  m.ServiceID,
		TemplateID: m.TemplateID,
		UserID:     m.PublicKey,
		TemplateParams: map[string]any{
			"sender_name":   n.SenderName,
			"receiver_name": n.ReceiverName,
			"email":         n.RecipientEmail,
			"message":       n.Message,
			"task_title":    n.TaskTitle,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail send returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
