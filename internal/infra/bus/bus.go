// Package bus provides an in-process publish/subscribe channel with typed
// event payloads. It replaces the storage-sentinel convention the app
// clients used for cross-view synchronization: publishers signal that
// something changed, subscribers re-fetch. Delivery is advisory; a
// publisher's own view must already be consistent before publishing and
// never waits for delivery.
package bus

import (
	"sync"
	"time"
)

// Topic identifies a class of change events.
type Topic string

const (
	TopicGoalsUpdated       Topic = "goals_updated"
	TopicBudgetsUpdated     Topic = "budgets_updated"
	TopicRemindersUpdated   Topic = "reminders_updated"
	TopicPreferencesChanged Topic = "preferences_changed"
	TopicBalanceChanged     Topic = "balance_changed"
	TopicProfileChanged     Topic = "profile_changed"
)

// Event is a change notification. Payload carries topic-specific detail
// (e.g. the goal id that changed); subscribers re-fetch rather than
// trusting the payload as authoritative state.
type Event struct {
	Topic   Topic     `json:"topic"`
	User    string    `json:"user"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

const subscriberBuffer = 16

type subscriber struct {
	topics map[Topic]struct{}
	ch     chan Event
}

// Bus is a thread-safe in-process event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers interest in the given topics (all topics when none
// are given). The returned cancel func must be called on teardown; after
// cancel the channel is closed.
func (b *Bus) Subscribe(topics ...Topic) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every matching subscriber. Delivery is
// non-blocking: a subscriber that has fallen behind loses the event, the
// same way a missed storage event was lost. Publish stamps At when the
// caller left it zero.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if sub.topics != nil {
			if _, ok := sub.topics[e.Topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
