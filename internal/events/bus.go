// Package events provides the in-process publish/subscribe bus that carries
// terminal generation events to live subscribers. Delivery is at-most-once
// and best-effort: events are never persisted and a subscriber that registers
// after a publication never sees it.
package events

import (
	"fmt"
	"sync"

	"peakform/coaching-app/internal/domain"

	log "github.com/sirupsen/logrus"
)

// subscriptionBuffer is the per-subscriber channel capacity. A subscriber
// whose buffer is full misses the event rather than blocking the publisher.
const subscriptionBuffer = 16

// FilterFunc decides whether a subscriber receives a given event.
type FilterFunc func(domain.GenerationEvent) bool

// Bus is an explicitly constructed pub/sub instance. Components receive it by
// reference; there is no process-wide singleton.
type Bus struct {
	mu     sync.Mutex
	topics map[string][]*Subscription
	closed bool
}

// Subscription is one subscriber's registration on a topic. Close must be
// called when the subscriber disconnects; it releases all bus resources held
// for the subscriber.
type Subscription struct {
	bus    *Bus
	topic  string
	filter FilterFunc
	ch     chan domain.GenerationEvent
	once   sync.Once
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string][]*Subscription)}
}

// Topic builds the canonical topic name for an entity kind.
func Topic(kind domain.EntityKind) string {
	return fmt.Sprintf("generation.%s", kind)
}

// Publish delivers the event to every current subscriber on the topic whose
// filter accepts it, in publication order per subscriber. It never blocks on
// subscriber processing; a full subscriber buffer drops the event for that
// subscriber. Zero subscribers is a valid, silent outcome.
func (b *Bus) Publish(topic string, ev domain.GenerationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, sub := range b.topics[topic] {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			log.WithFields(log.Fields{
				"topic":  topic,
				"target": ev.TargetID.Hex(),
			}).Warn("event bus: subscriber buffer full, dropping event")
		}
	}
}

// Subscribe registers a subscriber on the topic. A nil filter accepts every
// event. The returned subscription's channel stays open until Close is
// called or the bus shuts down.
func (b *Bus) Subscribe(topic string, filter FilterFunc) *Subscription {
	sub := &Subscription{
		bus:    b,
		topic:  topic,
		filter: filter,
		ch:     make(chan domain.GenerationEvent, subscriptionBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub
}

// Close shuts down the bus and every open subscription. Publishes after
// Close are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	b.topics = make(map[string][]*Subscription)
}

// Events returns the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan domain.GenerationEvent {
	return s.ch
}

// Close cancels the registration and closes the event channel. Safe to call
// more than once. The topic entry is torn down when its last subscriber
// leaves.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return
		}

		subs := b.topics[s.topic]
		for i, sub := range subs {
			if sub == s {
				b.topics[s.topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[s.topic]) == 0 {
			delete(b.topics, s.topic)
		}
		close(s.ch)
	})
}
