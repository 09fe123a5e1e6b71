package mocks

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/acme/acme-auth/internal/domain/event"
)

// EventRepo records the events a mock repository would have written to the
// outbox, in publish order.
type EventRepo struct {
	mu     sync.Mutex
	events []event.Event
}

func NewEventRepo() *EventRepo {
	return &EventRepo{}
}

func (r *EventRepo) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]event.Event(nil), r.events...)
}

// EventsOn returns the recorded events published to stream.
func (r *EventRepo) EventsOn(stream string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []event.Event
	for _, e := range r.events {
		if e.GetStreamName() == stream {
			out = append(out, e)
		}
	}
	return out
}

func (r *EventRepo) AssertEventNotExists(t *testing.T, e event.Event) *EventRepo {
	t.Helper()

	for _, ev := range r.Events() {
		if sameType(ev, e) {
			t.Errorf("expected no %T event, but one was published", e)
			break
		}
	}
	return r
}

func (r *EventRepo) AssertEventCount(t *testing.T, expectedCount int) *EventRepo {
	t.Helper()

	if got := len(r.Events()); got != expectedCount {
		t.Errorf("expected %d events, got %d", expectedCount, got)
	}
	return r
}

func (r *EventRepo) appendEvents(events ...event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, events...)
}

// RequireEventExists returns the most recent event of e's type and fails the
// test when there is none.
func RequireEventExists[T event.Event](t *testing.T, r *EventRepo, e T) T {
	t.Helper()

	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if !sameType(events[i], e) {
			continue
		}
		got, ok := events[i].(T)
		if !ok || events[i] == nil {
			t.Fatalf("event %T is nil", e)
		}
		assert.NotEmpty(t, got.GetEventHeader(), "event header should be set")
		return got
	}

	t.Fatalf("event %T not found, published: %v", e, typeNames(events))
	var zero T
	return zero
}

func sameType(a, b event.Event) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

func typeNames(events []event.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = fmt.Sprintf("%T", e)
	}
	return names
}
