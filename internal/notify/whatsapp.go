package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/models"
)

const whatsAppAPIBase = "https://graph.facebook.com/v18.0"

// WhatsAppChannel delivers notifications as WhatsApp Cloud API text
// messages.
type WhatsAppChannel struct {
	accessToken   string
	phoneNumberID string
	client        *http.Client
}

// NewWhatsAppChannel returns nil when the Cloud API credentials are
// not configured.
func NewWhatsAppChannel(cfg *config.Config) *WhatsAppChannel {
	if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		return nil
	}
	return &WhatsAppChannel{
		accessToken:   cfg.WhatsAppAccessToken,
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *WhatsAppChannel) Name() string { return models.ChannelWhatsApp }

func (c *WhatsAppChannel) Send(ctx context.Context, user *models.User, n *models.Notification) error {
	if user.WhatsAppPhone == nil || *user.WhatsAppPhone == "" {
		return errors.New("user has no whatsapp phone")
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                *user.WhatsAppPhone,
		"type":              "text",
		"text": map[string]interface{}{
			"body": n.Title + "\n\n" + n.Message,
		},
	}
	return c.post(ctx, payload)
}

func (c *WhatsAppChannel) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", whatsAppAPIBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
