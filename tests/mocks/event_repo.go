package mocks

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/event"
)

// EventRepo is an in-memory event publisher.
type EventRepo struct {
	events   []event.Event
	eventsMu sync.Mutex
	eventCh  chan event.Event
	err      error
}

func NewEventRepo() *EventRepo {
	return &EventRepo{
		events:  []event.Event{},
		eventCh: make(chan event.Event, 100),
	}
}

func (r *EventRepo) Publish(ctx context.Context, e any) error {
	r.eventsMu.Lock()
	err := r.err
	r.eventsMu.Unlock()
	if err != nil {
		return err
	}

	ev, ok := e.(event.Event)
	if !ok {
		return fmt.Errorf("unsupported event type %T", e)
	}
	r.appendEvents(ev)
	return nil
}

func (r *EventRepo) SetError(err error) *EventRepo {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	r.err = err
	return r
}

func (r *EventRepo) EventChannel() <-chan event.Event {
	return r.eventCh
}

func (r *EventRepo) Events() []event.Event {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()

	eventsCopy := make([]event.Event, len(r.events))
	copy(eventsCopy, r.events)
	return eventsCopy
}

func (r *EventRepo) AssertEventCount(t *testing.T, expectedCount int) *EventRepo {
	t.Helper()

	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()

	assert.Len(t, r.events, expectedCount, "expected %d events, but got %d", expectedCount, len(r.events))
	return r
}

func (r *EventRepo) appendEvents(events ...event.Event) {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()

	for _, e := range events {
		r.events = append(r.events, e)
		select {
		case r.eventCh <- e:
		default:
		}
	}
}

// RequireEventExists returns the first recorded event of the same type as
// target.
func RequireEventExists[T event.Event](t *testing.T, r *EventRepo, target T) T {
	t.Helper()

	for _, e := range r.Events() {
		if ev, ok := e.(T); ok {
			return ev
		}
	}
	require.Failf(t, "event not found", "expected event %T to be published", target)
	return target
}
