package utils

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/socialmux/socialmux/model"
)

// TopicMutations carries one message per committed write mutation. The signal
// relay subscribes to it to fan out invalidation signals and metrics.
const TopicMutations = "mutations"

// EventBus is a thin wrapper around an in-process watermill pub/sub. Mutation
// handlers publish domain events after their transaction commits; publishing
// never blocks the request path.
type EventBus struct {
	pubSub *gochannel.GoChannel
}

func NewEventBus() *EventBus {
	return &EventBus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NopLogger{},
		),
	}
}

// PublishEvent marshals the event and publishes it on the mutations topic.
// Errors are returned for the caller to log, a failed publish must never fail
// the mutation that already committed.
func (b *EventBus) PublishEvent(event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.pubSub.Publish(TopicMutations, message.NewMessage(watermill.NewUUID(), data))
}

// Subscribe returns a channel of raw messages for the given topic. The channel
// closes when ctx is done.
func (b *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

func (b *EventBus) Close() error {
	return b.pubSub.Close()
}

// DecodeEvent unmarshals a bus message back into a domain event.
func DecodeEvent(msg *message.Message) (model.Event, error) {
	var event model.Event
	err := json.Unmarshal(msg.Payload, &event)
	return event, err
}
