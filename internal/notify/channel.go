package notify

import (
	"context"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/models"
)

// Channel delivers a persisted notification to one external transport.
// Implementations are constructed at startup only when their
// credentials are configured; a missing channel disables delivery, it
// never fails a request.
type Channel interface {
	Name() string
	Send(ctx context.Context, user *models.User, n *models.Notification) error
}

// ChannelsFromConfig assembles the external channels whose config is
// complete. The constructors return nil pointers when unconfigured; a
// nil pointer appended as a Channel would still compare non-nil as an
// interface and panic on Send, so only non-nil results make the list.
// The Slack channel is also returned separately for interactive survey
// delivery.
func ChannelsFromConfig(cfg *config.Config) ([]Channel, *SlackChannel) {
	var channels []Channel
	if email := NewEmailChannel(cfg); email != nil {
		channels = append(channels, email)
	}
	if whatsapp := NewWhatsAppChannel(cfg); whatsapp != nil {
		channels = append(channels, whatsapp)
	}
	slack := NewSlackChannel(cfg)
	if slack != nil {
		channels = append(channels, slack)
	}
	return channels, slack
}

// channelsFor maps a user's preference and integrations onto the
// configured channels. In-app persistence always happens regardless.
func (s *Sink) channelsFor(user *models.User) []Channel {
	var out []Channel
	add := func(name string) {
		for _, c := range s.channels {
			if c.Name() == name {
				out = append(out, c)
			}
		}
	}

	switch user.PreferredChannel {
	case models.ChannelEmail:
		add(models.ChannelEmail)
	case models.ChannelWhatsApp:
		if user.WhatsAppPhone != nil {
			add(models.ChannelWhatsApp)
		}
	case models.ChannelSlack:
		if user.SlackConnected && user.SlackUserID != nil {
			add(models.ChannelSlack)
		}
	case models.ChannelBoth:
		add(models.ChannelEmail)
		if user.WhatsAppPhone != nil {
			add(models.ChannelWhatsApp)
		}
	}
	return out
}
