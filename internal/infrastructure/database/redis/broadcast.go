package redis

import (
	"context"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// GenerationBroadcaster announces newly activated model generations so that
// other replicas reload from the shared store.
type GenerationBroadcaster struct {
	client  *Client
	channel string
	logger  logging.Logger
}

// NewGenerationBroadcaster publishes on "<prefix>:models:generation".
func NewGenerationBroadcaster(client *Client, log logging.Logger) *GenerationBroadcaster {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &GenerationBroadcaster{
		client:  client,
		channel: client.Key("models", "generation"),
		logger:  log,
	}
}

// Channel is the pub/sub channel name.
func (b *GenerationBroadcaster) Channel() string { return b.channel }

// PublishGeneration announces id.
func (b *GenerationBroadcaster) PublishGeneration(ctx context.Context, id string) error {
	if b.client.isClosed() {
		return ErrClientClosed
	}
	if err := b.client.rdb.Publish(ctx, b.channel, id).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "publish generation").WithDetail(id)
	}
	return nil
}

// Subscribe calls fn for every announced generation id until ctx is done.
// It returns once the subscription is confirmed; delivery runs in the
// background.
func (b *GenerationBroadcaster) Subscribe(ctx context.Context, fn func(ctx context.Context, id string)) error {
	sub := b.client.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(err, errors.ErrCodeMessagingError, "subscribe to generation channel")
	}
	b.logger.Info("subscribed to generation broadcasts", logging.String("channel", b.channel))

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fn(ctx, msg.Payload)
			}
		}
	}()
	return nil
}
