package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *stubPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

type failingSink struct{ calls int }

func (s *failingSink) Notify(context.Context, Notification) error {
	s.calls++
	return errors.New("boom")
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewRedisSink(pub, "")

	n := Notification{Recipient: "bob@example.com", Kind: KindMessage, Title: "New message", Body: "hi", Data: map[string]string{"from": "alice@example.com"}}
	require.NoError(t, sink.Notify(context.Background(), n))

	assert.Equal(t, DefaultChannel, pub.channel)
	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, n, decoded)
}

func TestRedisSinkWrapsPublishErrors(t *testing.T) {
	sink := NewRedisSink(&stubPublisher{err: redis.ErrClosed}, "custom")
	err := sink.Notify(context.Background(), Notification{Recipient: "bob@example.com"})
	assert.ErrorIs(t, err, redis.ErrClosed)
}

func TestDispatchSwallowsErrors(t *testing.T) {
	sink := &failingSink{}
	assert.NotPanics(t, func() {
		Dispatch(context.Background(), sink, Notification{Recipient: "bob@example.com"})
		Dispatch(context.Background(), sink, Notification{})
		Dispatch(context.Background(), nil, Notification{Recipient: "bob@example.com"})
	})
	assert.Equal(t, 1, sink.calls, "notifications without a recipient are dropped")
}
