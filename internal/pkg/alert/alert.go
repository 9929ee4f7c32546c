// Package alert posts supervisor alerts to a chat channel.
package alert

import (
	"context"
	"fmt"
	"sort"

	"github.com/slack-go/slack"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

type Alert struct {
	Level   Level
	Title   string
	Message string
	Fields  map[string]string
}

type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// New returns a Slack notifier, or a no-op one when no token is configured.
func New(token, channel string, opts ...slack.Option) Notifier {
	if token == "" || channel == "" {
		return Noop{}
	}
	return NewSlack(token, channel, opts...)
}

type Slack struct {
	client  *slack.Client
	channel string
}

func NewSlack(token, channel string, opts ...slack.Option) *Slack {
	return &Slack{client: slack.New(token, opts...), channel: channel}
}

func (s *Slack) Send(ctx context.Context, a Alert) error {
	color := "#439FE0"
	if a.Level == LevelWarning {
		color = "warning"
	}

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]slack.AttachmentField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, slack.AttachmentField{Title: k, Value: a.Fields[k], Short: true})
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(a.Title, false),
		slack.MsgOptionAttachments(slack.Attachment{
			Color:  color,
			Text:   a.Message,
			Fields: fields,
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

type Noop struct{}

func (Noop) Send(context.Context, Alert) error { return nil }
