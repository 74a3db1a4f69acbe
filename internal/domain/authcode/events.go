package authcode

import (
	"gitlab.com/ucmsv2/authcode-service/internal/domain/event"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
)

const EventStreamName = "events_authcode"

// NotificationRequested asks the mail worker to deliver an auth code message.
type NotificationRequested struct {
	event.Header
	event.Otel
	Message mail.Message `json:"message"`
}

func NewNotificationRequested(msg mail.Message) *NotificationRequested {
	return &NotificationRequested{
		Header:  event.NewEventHeader(),
		Message: msg,
	}
}

func (e NotificationRequested) GetStreamName() string {
	return EventStreamName
}
