package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/boxcar/internal/config"
)

type recorder struct {
	sent []string
	err  error
}

func (r *recorder) Send(ctx context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	n := Multi(a, b)

	require.NoError(t, n.Send(context.Background(), "group 77 stale"))
	assert.Equal(t, []string{"group 77 stale"}, a.sent)
	assert.Equal(t, []string{"group 77 stale"}, b.sent)
}

func TestMulti_FailureDoesNotSilenceOthers(t *testing.T) {
	bad := &recorder{err: errors.New("channel gone")}
	good := &recorder{}
	n := Multi(bad, good)

	require.NoError(t, n.Send(context.Background(), "alert"))
	assert.Len(t, good.sent, 1)
}

func TestFromConfig_DefaultsToLog(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{})
	require.NoError(t, err)
	assert.IsType(t, logNotifier{}, n)
	assert.NoError(t, n.Send(context.Background(), "hello"))
}

func TestFromConfig_SlackConfigured(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{
		SlackToken:   "xoxb-test",
		SlackChannel: "#ops",
	})
	require.NoError(t, err)
	m, ok := n.(multi)
	require.True(t, ok, "expected multi notifier, got %T", n)
	assert.Len(t, m, 1)
}

func TestFromConfig_BothChannels(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{
		SlackToken:     "xoxb-test",
		SlackChannel:   "#ops",
		DiscordToken:   "token",
		DiscordChannel: "123456",
	})
	require.NoError(t, err)
	m, ok := n.(multi)
	require.True(t, ok, "expected multi notifier, got %T", n)
	assert.Len(t, m, 2)
}
