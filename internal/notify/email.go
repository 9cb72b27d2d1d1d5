package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/models"
)

// EmailChannel delivers notifications over SMTP.
type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	from     string
	company  string
}

// NewEmailChannel returns nil when SMTP is not configured.
func NewEmailChannel(cfg *config.Config) *EmailChannel {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return nil
	}
	return &EmailChannel{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		company:  cfg.CompanyName,
	}
}

func (c *EmailChannel) Name() string { return models.ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, user *models.User, n *models.Notification) error {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	auth := smtp.PlainAuth("", c.username, c.password, c.host)

	fromHeader := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", c.company), c.from)
	headers := map[string]string{
		"From":         fromHeader,
		"To":           user.Email,
		"Subject":      mime.QEncoding.Encode("utf-8", n.Title),
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(n.Message)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, c.from, []string{user.Email}, []byte(msg.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send timed out: %w", ctx.Err())
	}
}
