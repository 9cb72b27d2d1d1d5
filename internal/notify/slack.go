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

const slackAPIBase = "https://slack.com/api"

// SlackChannel delivers notifications via chat.postMessage DMs. It
// also supports interactive block payloads for in-Slack survey
// delivery.
type SlackChannel struct {
	botToken string
	client   *http.Client
}

// NewSlackChannel returns nil when no bot token is configured.
func NewSlackChannel(cfg *config.Config) *SlackChannel {
	if cfg.SlackBotToken == "" {
		return nil
	}
	return &SlackChannel{
		botToken: cfg.SlackBotToken,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *SlackChannel) Name() string { return models.ChannelSlack }

func (c *SlackChannel) Send(ctx context.Context, user *models.User, n *models.Notification) error {
	if !user.SlackConnected || user.SlackUserID == nil {
		return errors.New("user has no connected slack account")
	}
	payload := map[string]interface{}{
		"channel": *user.SlackUserID,
		"text":    fmt.Sprintf("*%s*\n%s", n.Title, n.Message),
	}
	return c.postMessage(ctx, payload)
}

// SendBlocks posts an interactive block-kit message, used by the
// survey reminder sweep for connected users.
func (c *SlackChannel) SendBlocks(ctx context.Context, slackUserID string, text string, blocks []map[string]interface{}) error {
	payload := map[string]interface{}{
		"channel": slackUserID,
		"text":    text,
		"blocks":  blocks,
	}
	return c.postMessage(ctx, payload)
}

func (c *SlackChannel) postMessage(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackAPIBase+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var parsed struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("slack api returned unparseable response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("slack api error: %s", parsed.Error)
	}
	return nil
}
