// Package discord implements the notify.Notifier for a Discord channel.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts lead notifications to a fixed Discord channel. Messages go
// over the REST API; no gateway connection is opened.
type Notifier struct {
	session   session
	channelID string
}

// New creates a Discord notifier using a bot token.
func New(botToken, channelID string) (*Notifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Notifier{session: s, channelID: channelID}, nil
}

// Send posts the text to the configured channel.
func (n *Notifier) Send(ctx context.Context, text string) error {
	_, err := n.session.ChannelMessageSend(n.channelID, text,
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}
