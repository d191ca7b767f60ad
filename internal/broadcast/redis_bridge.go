package broadcast

import (
	"context"
	"fmt"

	"github.com/greenheaven/floorsync/pkg/logger"
)

type redisPubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

// RedisBridge relays events through a Redis pub/sub channel.
type RedisBridge struct {
	client  redisPubSub
	channel string
	logg    *logger.Logger
}

func NewRedisBridge(client redisPubSub, channel string, logg *logger.Logger) (*RedisBridge, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		return nil, fmt.Errorf("redis channel required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisBridge{client: client, channel: channel, logg: logg}, nil
}

func (b *RedisBridge) Forward(ctx context.Context, evt Event) error {
	data, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data)
}

func (b *RedisBridge) Receive(ctx context.Context, deliver func(Event)) error {
	messages, closeFn, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis channel %s closed", b.channel)
			}
			evt, err := decodeEvent(data)
			if err != nil {
				b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "dropping malformed bridge event")
				continue
			}
			deliver(evt)
		}
	}
}

func (b *RedisBridge) Close() error {
	return nil
}
