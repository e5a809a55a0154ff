// Package realtime provides an in-process change-subscription primitive.
//
// Repositories publish an event for every row change; consumers register
// a filter (table + event type + field equality) and receive matching
// events on a channel until they cancel. Delivery is best-effort: a slow
// consumer loses events rather than blocking writers, and missed events
// are expected to be recovered by the consumer's own catch-up query.
package realtime

import "sync"

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event describes a single row change. Fields carries the filterable
// columns of the changed row (e.g. "user_id"), Payload the row itself.
type Event struct {
	Table   string
	Type    EventType
	Fields  map[string]uint
	Payload any
}

// subscriberBuffer is the per-subscription channel capacity. One displayed
// warning at a time means consumers drain slowly; a small buffer absorbs
// bursts without blocking the publishing repository.
const subscriberBuffer = 8

// Subscription is a cancellable handle on a filtered event stream.
type Subscription struct {
	C chan Event

	broker *Broker
	id     uint64
	table  string
	event  EventType
	field  string
	value  uint

	once sync.Once
}

// Cancel releases the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.broker.remove(s.id)
		close(s.C)
	})
}

func (s *Subscription) matches(e Event) bool {
	if e.Table != s.table || e.Type != s.event {
		return false
	}
	v, ok := e.Fields[s.field]
	return ok && v == s.value
}

// Broker fans published events out to matching subscriptions.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a filtered listener. The filter is evaluated by the
// broker, never by the consumer, so a subscription scoped to one user id
// cannot observe other users' rows.
func (b *Broker) Subscribe(table string, event EventType, field string, value uint) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		C:      make(chan Event, subscriberBuffer),
		broker: b,
		id:     b.nextID,
		table:  table,
		event:  event,
		field:  field,
		value:  value,
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers the event to every matching subscription. Sends never
// block: a full subscriber buffer drops the event.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.matches(e) {
			continue
		}
		select {
		case sub.C <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscriptions, for tests and
// the health endpoint.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}
