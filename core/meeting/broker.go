package meeting

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventCreated EventKind = "meeting.created"
	EventUpdated EventKind = "meeting.updated"
)

// Event announces a change to a meeting. It is delivered at most once per subscriber.
type Event struct {
	Kind    EventKind `json:"kind"`
	Meeting Meeting   `json:"meeting"`
	At      time.Time `json:"at"`
}

func NewEvent(kind EventKind, m Meeting) Event {
	return Event{Kind: kind, Meeting: m, At: time.Now().UTC()}
}

// Concerns reports whether the event is relevant to userID. Subscribers check it themselves.
func (e Event) Concerns(userID string) bool {
	return e.Meeting.Involves(userID)
}

// Broker fans events out to subscribers. Publishing never blocks: subscribers whose
// buffer is full miss the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*Subscription)}
}

type Subscription struct {
	C <-chan Event

	c      chan Event
	id     uint64
	broker *Broker
	once   sync.Once
}

// Subscribe registers a subscriber with a buffer of the given size (at least 1).
func (b *Broker) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	c := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{C: c, c: c, id: b.nextID, broker: b}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
		close(s.c)
	})
}

// Publish delivers e to every subscriber with room for it and returns how many received it.
func (b *Broker) Publish(e Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var delivered int
	for _, sub := range b.subs {
		select {
		case sub.c <- e:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
