// Package events is the in-process pub/sub used for profile updates and notifications.
package events

import (
	"errors"
	"sync"
	"time"
)

// Topics published by the portal.
const (
	TopicProfileUpdated  = "user-profile-updated"
	TopicUserInfoUpdated = "user-info-updated"

	TopicNewRequest      = "newRequest"
	TopicRequestApproved = "requestApproved"
	TopicRequestDenied   = "requestDenied"
	TopicMeetingSoon     = "meetingSoon"
	TopicRequestCanceled = "requestCanceled"

	TopicAppointmentStarted   = "appointmentStarted"
	TopicAppointmentCompleted = "appointmentCompleted"
	TopicSlotRegistered       = "slotRegistered"
	TopicDashboardRefreshed   = "dashboardRefreshed"
)

// Event represents a lightweight notification.
type Event struct {
	Type      string
	Message   string
	Payload   any
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]subscription
	nextID      uint64
	mu          sync.RWMutex
	now         func() time.Time
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]subscription), now: time.Now}
}

// Subscribe registers a handler for a topic. The returned func removes it.
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish notifies subscribers of the event type synchronously and
// returns the joined handler errors.
func (b *Bus) Publish(event Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = b.now()
	}

	var errs []error
	for _, s := range subs {
		if err := s.handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify publishes a message-only event.
func (b *Bus) Notify(topic, message string) error {
	return b.Publish(Event{Type: topic, Message: message})
}

// Subscribers returns the number of handlers on a topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
