package slack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
)

type mockClient struct {
	mu       sync.Mutex
	channels []string
	calls    int
	errs     []error
}

func (m *mockClient) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.channels = append(m.channels, channelID)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", "", err
	}
	return channelID, "1700000000.000100", nil
}

func testAlert() notify.Alert {
	return notify.Alert{
		SessionID:        "web_abc",
		QANotes:          "bot promised a callback it cannot make",
		Actor:            "rita",
		PreviousStatus:   models.QAUnchecked,
		Source:           models.SourceWebChat,
		CompletionStatus: models.CompletionComplete,
		MessageCount:     7,
		OccurredAt:       time.Now(),
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Opts{ChannelID: "C1"})
	assert.ErrorContains(t, err, "bot token is required")

	_, err = New(Opts{BotToken: "xoxb-1"})
	assert.ErrorContains(t, err, "channel id is required")

	c, err := New(Opts{BotToken: "xoxb-1", ChannelID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "slack", c.Name())
}

func TestNotify_PostsToChannel(t *testing.T) {
	mock := &mockClient{}
	c, err := New(Opts{ChannelID: "C42", Client: mock})
	require.NoError(t, err)

	require.NoError(t, c.Notify(context.Background(), testAlert()))
	assert.Equal(t, 1, mock.calls)
	assert.Equal(t, []string{"C42"}, mock.channels)
}

func TestNotify_RetriesRateLimit(t *testing.T) {
	mock := &mockClient{errs: []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}}
	c, err := New(Opts{ChannelID: "C42", Client: mock})
	require.NoError(t, err)

	require.NoError(t, c.Notify(context.Background(), testAlert()))
	assert.Equal(t, 2, mock.calls)
}

func TestNotify_NonRateLimitErrorNotRetried(t *testing.T) {
	mock := &mockClient{errs: []error{errors.New("channel_not_found")}}
	c, err := New(Opts{ChannelID: "C42", Client: mock})
	require.NoError(t, err)

	err = c.Notify(context.Background(), testAlert())
	assert.ErrorContains(t, err, "channel_not_found")
	assert.Equal(t, 1, mock.calls)
}

func TestEventToAttachment(t *testing.T) {
	evt := testAlert().Event()
	att := eventToAttachment(evt)

	assert.Equal(t, evt.Title, att.Title)
	assert.Equal(t, notify.ColorError, att.Color)
	assert.Len(t, att.Fields, len(evt.Fields))
	assert.Equal(t, "Flagged by", att.Fields[0].Title)
	assert.Equal(t, "rita", att.Fields[0].Value)
}
