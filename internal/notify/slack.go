package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type slackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlack returns a Notifier posting to the given Slack channel.
func NewSlack(token, channel string) Notifier {
	return &slackNotifier{client: slack.New(token), channel: channel}
}

func (s *slackNotifier) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", s.channel, err)
	}
	return nil
}
