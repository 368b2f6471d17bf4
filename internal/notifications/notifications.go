// Package notifications delivers best-effort user notifications.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/chotuve/appserver/internal/logging"
)

// Notification kinds.
const (
	KindFriendRequest  = "friend_request"
	KindFriendAccepted = "friend_accepted"
	KindMessage        = "message"
	KindComment        = "comment"
)

// DefaultChannel is the redis channel notifications are published on.
const DefaultChannel = "appserver:notifications"

// ErrEmptyChannel is returned by RedisSink when no channel is configured.
var ErrEmptyChannel = errors.New("notification channel is empty")

// Notification is a message addressed to a single user.
type Notification struct {
	Recipient string            `json:"recipient"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatch sends n through sink and logs any failure. Delivery never affects
// the caller's outcome.
func Dispatch(ctx context.Context, sink Sink, n Notification) {
	if sink == nil || n.Recipient == "" {
		return
	}
	if err := sink.Notify(ctx, n); err != nil {
		logging.FromContext(ctx).Warn("notification delivery failed",
			slog.String("kind", n.Kind),
			slog.String("recipient", n.Recipient),
			slog.Any("error", err),
		)
	}
}

// Publisher is the subset of the redis client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes notifications as JSON on a redis pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink returns a sink publishing on channel, or DefaultChannel when empty.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

// Notify publishes the notification.
func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	if s.channel == "" {
		return ErrEmptyChannel
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogSink writes notifications to the request logger. It is used when no
// redis instance is configured.
type LogSink struct{}

// Notify logs the notification.
func (LogSink) Notify(ctx context.Context, n Notification) error {
	logging.FromContext(ctx).Info("notification",
		slog.String("kind", n.Kind),
		slog.String("recipient", n.Recipient),
		slog.String("title", n.Title),
	)
	return nil
}

var (
	_ Sink = (*RedisSink)(nil)
	_ Sink = LogSink{}
)
