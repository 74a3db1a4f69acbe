package watermillx

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v4/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/event"
)

// Streams lists every event stream the service publishes to.
var Streams = []string{
	authcode.EventStreamName,
}

// SubscriberConstructor builds the subscriber an event processor reads a handler's topic from.
type SubscriberConstructor = func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error)

func NewEventProcessor(router *message.Router, subscribe SubscriberConstructor, logger watermill.LoggerAdapter) (*cqrs.EventProcessor, error) {
	return cqrs.NewEventProcessorWithConfig(router, cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			evt, ok := params.EventHandler.NewEvent().(event.Event)
			if !ok {
				return "", fmt.Errorf("event handler %T does not implement event.Event", params.EventHandler.NewEvent())
			}
			return MessageTopic(evt)
		},
		SubscriberConstructor: subscribe,
		Marshaler:             cqrs.JSONMarshaler{},
		Logger:                logger,
		AckOnUnknownEvent:     true,
	})
}

// SQLSubscriber reads events from the postgres outbox tables, one consumer
// group per handler. A zero pollInterval keeps the watermill default.
func SQLSubscriber(conn *pgxpool.Pool, pollInterval time.Duration, logger watermill.LoggerAdapter) SubscriberConstructor {
	return func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
		return watermillSQL.NewSubscriber(
			watermillSQL.BeginnerFromPgx(conn),
			watermillSQL.SubscriberConfig{
				ConsumerGroup:    params.EventHandler.HandlerName(),
				SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
				OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
				InitializeSchema: true,
				PollInterval:     pollInterval,
			},
			logger,
		)
	}
}

// ChannelSubscriber hands every handler the same in-process pubsub.
func ChannelSubscriber(ch *gochannel.GoChannel) SubscriberConstructor {
	return func(cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
		return ch, nil
	}
}

// NewGoChannel returns an in-process pubsub. Messages published while no
// handler is subscribed are dropped.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

// NewSQLPublisher writes events to the postgres outbox tables.
func NewSQLPublisher(conn *pgxpool.Pool, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := watermillSQL.NewPublisher(
		watermillSQL.BeginnerFromPgx(conn),
		watermillSQL.PublisherConfig{
			SchemaAdapter:        watermillSQL.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	return publisher, nil
}

func NewEventBus(publisher message.Publisher, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	eventBus, err := cqrs.NewEventBusWithConfig(publisher, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			evt, ok := params.Event.(event.Event)
			if !ok {
				return "", fmt.Errorf("event %T does not implement event.Event", params.Event)
			}

			return MessageTopic(evt)
		},
		Marshaler: cqrs.JSONMarshaler{},
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	return eventBus, nil
}

func MessageTopic(event event.Event) (string, error) {
	streamName := event.GetStreamName()
	if streamName == "" {
		return "", fmt.Errorf("stream name is empty, event: %T", event)
	}

	return streamName, nil
}

// InitializeEventSchema creates the outbox tables of every stream up front.
func InitializeEventSchema(ctx context.Context, conn *pgxpool.Pool, logger watermill.LoggerAdapter) error {
	subscriber, err := watermillSQL.NewSubscriber(
		watermillSQL.BeginnerFromPgx(conn),
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	defer subscriber.Close()

	for _, stream := range Streams {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := subscriber.SubscribeInitialize(stream); err != nil {
			return fmt.Errorf("failed to initialize event schema for %s: %w", stream, err)
		}
	}

	return nil
}
