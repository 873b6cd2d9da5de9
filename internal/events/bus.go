// Package events is the in-process progress event bus. The sync orchestrator and the
// reconciler publish; every live status stream owns one Subscription.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/metrics"
)

// Topic names an event kind
type Topic string

const (
	TopicStarted         Topic = "started"
	TopicProgress        Topic = "progress"
	TopicCompleted       Topic = "completed"
	TopicFailed          Topic = "failed"
	TopicVesselSynced    Topic = "vessel-synced"
	TopicEquipmentSynced Topic = "equipment-synced"
	TopicUserSynced      Topic = "user-synced"
)

const defaultBuffer = 64

// Event is one message on the bus
type Event struct {
	Topic     Topic     `json:"type"`
	SyncID    string    `json:"syncId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// New builds an event stamped with the current time
func New(topic Topic, syncID string, data any) Event {
	return Event{
		Topic:     topic,
		SyncID:    syncID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher is implemented by Bus
type Publisher interface {
	Publish(event Event)
}

// Bus fans events out to subscribers. Publishing never blocks: when a subscriber's
// buffer is full its oldest pending event is dropped.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus whose subscriptions buffer up to buffer events
func NewBus(buffer int, logger *logrus.Logger, m *metrics.Metrics) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		subs:    make(map[uint64]*Subscription),
		buffer:  buffer,
		logger:  logger,
		metrics: m,
	}
}

// Subscription is a live handle on the bus. Close must be called when the consumer goes away.
type Subscription struct {
	id      uint64
	ch      chan Event
	bus     *Bus
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers a new subscriber
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		ch:  make(chan Event, b.buffer),
		bus: b,
	}
	b.subs[sub.id] = sub
	b.metrics.SetSubscribers(len(b.subs))
	b.logger.WithField("subscribers", len(b.subs)).Debug("Event subscriber added")

	return sub
}

// Events returns the receive side; it is closed by Close
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded for this subscriber
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the event channel. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		count := len(s.bus.subs)
		close(s.ch)
		s.bus.mu.Unlock()

		s.bus.metrics.SetSubscribers(count)
		s.bus.logger.WithFields(logrus.Fields{
			"subscribers": count,
			"dropped":     s.dropped.Load(),
		}).Debug("Event subscriber removed")
	})
}

// Publish delivers event to every current subscriber
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		sub.deliver(event)
	}
}

// deliver replaces the oldest buffered event when the channel is full
func (s *Subscription) deliver(event Event) {
	select {
	case s.ch <- event:
		return
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
