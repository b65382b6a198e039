package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler consumes a published event. A returned error is logged by the bus
// and never reaches the publisher.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	handler    Handler
	background bool
}

// Bus is the in-process publish/subscribe hub. Subscriptions are expected at
// startup; the handler map is read-mostly afterwards, so a plain RWMutex is
// enough. Publish never fails and never lets one handler break another.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers handler for the given kinds. Handlers for the same kind
// run in registration order, awaited by Publish.
func (b *Bus) Subscribe(handler Handler, kinds ...Kind) {
	b.add(subscription{handler: handler}, kinds)
}

// SubscribeBackground registers handler to run on its own goroutine per
// event. Publish schedules it and moves on, so a slow handler never delays
// the publisher. The handler receives a context detached from the
// publisher's cancellation, since the publishing request may finish first.
func (b *Bus) SubscribeBackground(handler Handler, kinds ...Kind) {
	b.add(subscription{handler: handler, background: true}, kinds)
}

func (b *Bus) add(s subscription, kinds []Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range kinds {
		b.subs[k] = append(b.subs[k], s)
	}
}

// Publish invokes every handler registered for ev.Kind. Awaited handlers run
// inline in registration order; background handlers are scheduled and not
// waited for. Handler errors and panics are caught and logged; the publisher
// is never affected. An event with no subscribers is a no-op.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Kind]
	b.mu.RUnlock()

	for _, s := range subs {
		if s.background {
			go b.invoke(context.WithoutCancel(ctx), s.handler, ev)
			continue
		}
		b.invoke(ctx, s.handler, ev)
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	if err := h(ctx, ev); err != nil {
		slog.Error("event handler failed", "kind", ev.Kind, "err", err)
	}
}
