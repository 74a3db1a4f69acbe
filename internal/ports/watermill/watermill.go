package watermill

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"gitlab.com/ucmsv2/authcode-service/internal/application/mail"
	"gitlab.com/ucmsv2/authcode-service/pkg/watermillx"
)

type Port struct {
	eventProcessor *cqrs.EventProcessor
}

type AppEventHandlers struct {
	Mail *mail.App
}

func NewPort(router *message.Router, subscribe watermillx.SubscriberConstructor, wmlogger watermill.LoggerAdapter) (*Port, error) {
	eventProcessor, err := watermillx.NewEventProcessor(router, subscribe, wmlogger)
	if err != nil {
		return nil, err
	}

	return &Port{eventProcessor: eventProcessor}, nil
}

// Register adds the event handlers to the router. Call it before the router runs.
func (p *Port) Register(handlers AppEventHandlers) error {
	if handlers.Mail == nil || handlers.Mail.Event == nil {
		return fmt.Errorf("mail event handler is required")
	}

	err := p.eventProcessor.AddHandlers(
		cqrs.NewEventHandler("MailOnNotificationRequested", handlers.Mail.Event.HandleNotificationRequested),
	)
	if err != nil {
		return fmt.Errorf("failed to add event handlers: %w", err)
	}

	return nil
}
