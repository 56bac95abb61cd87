// Package bus distributes task lifecycle events to subscribers inside the
// process.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/kaneo-dev/kaneo-sync/models"
)

const taskEventsTopic = "task-events"

const metadataEventType = "event_type"

// Bus is an in-process publish/subscribe fan-out for task events. Events are
// JSON on the wire so that handlers stay decoupled from publisher internals.
type Bus struct {
	pubSub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

func New() (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	return &Bus{pubSub: pubSub, router: router, logger: logger}, nil
}

// PublishTaskEvent puts a task event on the bus. Publishing never blocks on
// slow subscribers beyond the channel buffer.
func (b *Bus) PublishTaskEvent(ctx context.Context, event *models.TaskEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling task event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEventType, event.Type)
	msg.SetContext(ctx)
	return b.pubSub.Publish(taskEventsTopic, msg)
}

// Subscribe registers a handler for all task events. Handler errors are
// logged by the router; there is no redelivery, matching the engine's
// best-effort contract.
func (b *Bus) Subscribe(name string, handler func(context.Context, *models.TaskEvent) error) {
	b.router.AddNoPublisherHandler(
		name,
		taskEventsTopic,
		b.pubSub,
		func(msg *message.Message) error {
			var event models.TaskEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				return fmt.Errorf("unmarshaling task event: %w", err)
			}
			return handler(msg.Context(), &event)
		},
	)
}

// Run starts the router and blocks until ctx is canceled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once the router has started all handlers.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubSub.Close()
}
