package event

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	GetEventHeader() Header
	GetStreamName() string
}

type Header struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e *Header) GetEventHeader() Header {
	return *e
}

func NewEventHeader() Header {
	return NewEventHeaderAt(time.Now())
}

func NewEventHeaderAt(ts time.Time) Header {
	return Header{
		ID:        uuid.New(),
		Timestamp: ts.UTC(),
	}
}

type Recorder struct {
	events []Event
}

func (e *Recorder) AddEvent(event Event) {
	if e == nil {
		return
	}
	e.events = append(e.events, event)
}

func (e *Recorder) GetUncommittedEvents() []Event {
	if e == nil {
		return nil
	}
	return e.events
}

func (e *Recorder) MarkEventsAsCommitted() {
	if e == nil {
		return
	}
	e.events = []Event{}
}
