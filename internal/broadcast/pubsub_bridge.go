package broadcast

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/greenheaven/floorsync/pkg/logger"
)

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// PubSubBridge relays events through a shared GCP Pub/Sub topic. Each instance
// reads from its own subscription so every node sees every event.
type PubSubBridge struct {
	publisher publisher
	receiver  receiver
	stop      func()
	logg      *logger.Logger
}

// NewPubSubBridge wires a topic publisher and this instance's subscriber.
func NewPubSubBridge(pub *gcppubsub.Publisher, sub *gcppubsub.Subscriber, logg *logger.Logger) (*PubSubBridge, error) {
	if pub == nil {
		return nil, fmt.Errorf("events publisher required")
	}
	if sub == nil {
		return nil, fmt.Errorf("events subscriber required")
	}
	return newPubSubBridge(&gcpPublisher{Publisher: pub}, sub, pub.Stop, logg), nil
}

func newPubSubBridge(pub publisher, recv receiver, stop func(), logg *logger.Logger) *PubSubBridge {
	if logg == nil {
		logg = logger.Nop()
	}
	if stop == nil {
		stop = func() {}
	}
	return &PubSubBridge{publisher: pub, receiver: recv, stop: stop, logg: logg}
}

// Forward publishes asynchronously; failures are only logged.
func (b *PubSubBridge) Forward(ctx context.Context, evt Event) error {
	data, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	res := b.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(evt.Name),
			"origin":     evt.Origin,
		},
	})
	if res == nil {
		return errors.New("publish result is nil")
	}
	go func() {
		if _, err := res.Get(context.WithoutCancel(ctx)); err != nil {
			b.logg.Warn(b.logg.WithFields(context.Background(), map[string]any{
				"event": string(evt.Name),
				"error": err.Error(),
			}), "pubsub bridge publish failed")
		}
	}()
	return nil
}

func (b *PubSubBridge) Receive(ctx context.Context, deliver func(Event)) error {
	return b.receiver.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		// at-most-once: a message is acked whether or not it could be used
		defer msg.Ack()
		evt, err := decodeEvent(msg.Data)
		if err != nil {
			b.logg.Warn(b.logg.WithFields(ctx, map[string]any{
				"message_id": msg.ID,
				"error":      err.Error(),
			}), "dropping malformed bridge event")
			return
		}
		deliver(evt)
	})
}

func (b *PubSubBridge) Close() error {
	b.stop()
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
