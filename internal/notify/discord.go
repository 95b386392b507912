package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

type discordNotifier struct {
	session *discordgo.Session
	channel string
}

// NewDiscord returns a Notifier posting to the given Discord channel.
// The session is REST-only; no gateway connection is opened.
func NewDiscord(token, channel string) (Notifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &discordNotifier{session: session, channel: channel}, nil
}

func (d *discordNotifier) Send(ctx context.Context, text string) error {
	_, err := d.session.ChannelMessageSend(d.channel, text,
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord send to %s: %w", d.channel, err)
	}
	return nil
}
