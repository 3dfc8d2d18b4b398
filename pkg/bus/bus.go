package bus

import (
	"context"
	"sync"
)

// Subscriber is a named tap on a stream. Multiple subscribers can
// independently consume the same published items (fan-out).
type Subscriber struct {
	Name string
	ch   chan interface{}
}

type interactionSub struct {
	name   string
	filter InteractionFilter
	ch     chan Interaction
}

type MessageBus struct {
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	interactionSubs map[*interactionSub]struct{}
	systemSubs      []*Subscriber
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		interactionSubs: make(map[*interactionSub]struct{}),
	}
}

// --- Interactions ---

// SubscribeInteractions registers a filtered interaction subscriber. The
// returned channel is closed when ctx ends or the bus is closed. Delivery
// preserves publish order per subscriber.
func (mb *MessageBus) SubscribeInteractions(ctx context.Context, name string, filter InteractionFilter) <-chan Interaction {
	sub := &interactionSub{
		name:   name,
		filter: filter,
		ch:     make(chan Interaction, 16),
	}

	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	mb.interactionSubs[sub] = struct{}{}
	mb.mu.Unlock()

	go func() {
		<-ctx.Done()
		mb.unsubscribe(sub)
	}()
	return sub.ch
}

func (mb *MessageBus) unsubscribe(sub *interactionSub) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if _, ok := mb.interactionSubs[sub]; !ok {
		return
	}
	delete(mb.interactionSubs, sub)
	close(sub.ch)
}

// PublishInteraction delivers an interaction to every matching subscriber.
// It returns the number of subscribers that accepted it, so the gateway can
// tell stale interactions (no live session) apart.
func (mb *MessageBus) PublishInteraction(in Interaction) int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return 0
	}

	delivered := 0
	for sub := range mb.interactionSubs {
		if sub.filter != nil && !sub.filter(in) {
			continue
		}
		select {
		case sub.ch <- in:
			delivered++
		default: // drop if slow
		}
	}
	return delivered
}

// --- System events ---

// SubscribeSystem creates a named subscriber for system events.
func (mb *MessageBus) SubscribeSystem(name string) <-chan interface{} {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	sub := &Subscriber{Name: name, ch: make(chan interface{}, 64)}
	if mb.closed {
		close(sub.ch)
		return sub.ch
	}
	mb.systemSubs = append(mb.systemSubs, sub)
	return sub.ch
}

// PublishSystem publishes a system event to all system subscribers.
// A nil bus discards the event.
func (mb *MessageBus) PublishSystem(event SystemEvent) {
	if mb == nil {
		return
	}
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}
	for _, sub := range mb.systemSubs {
		select {
		case sub.ch <- event:
		default: // drop if slow
		}
	}
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		mb.mu.Lock()
		defer mb.mu.Unlock()
		mb.closed = true
		for sub := range mb.interactionSubs {
			close(sub.ch)
		}
		mb.interactionSubs = make(map[*interactionSub]struct{})
		for _, sub := range mb.systemSubs {
			close(sub.ch)
		}
	})
}
