// Package notify delivers operator alerts for pipeline anomalies.
package notify

import (
	"context"
	"log"

	"github.com/zulandar/boxcar/internal/config"
)

// Notifier delivers one alert message to an operator channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// FromConfig builds a Notifier fanning out to every configured channel.
// With nothing configured, alerts go to the process log.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var targets []Notifier
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		targets = append(targets, NewSlack(cfg.SlackToken, cfg.SlackChannel))
	}
	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		d, err := NewDiscord(cfg.DiscordToken, cfg.DiscordChannel)
		if err != nil {
			return nil, err
		}
		targets = append(targets, d)
	}
	if len(targets) == 0 {
		return Log(), nil
	}
	return Multi(targets...), nil
}

// Multi fans one alert out to every target. Delivery failures are logged,
// not returned: one dead channel must not silence the others.
func Multi(targets ...Notifier) Notifier {
	return multi(targets)
}

type multi []Notifier

func (m multi) Send(ctx context.Context, text string) error {
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}

// Log returns a Notifier that writes alerts to the process log.
func Log() Notifier {
	return logNotifier{}
}

type logNotifier struct{}

func (logNotifier) Send(ctx context.Context, text string) error {
	log.Printf("notify: %s", text)
	return nil
}
