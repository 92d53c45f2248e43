package events

import (
	"context"
	"sync"

	"github.com/RayanGhomsi/Prestige/internal/identity"
)

type Kind int

const (
	SignedIn Kind = iota + 1
	SignedOut
)

func (k Kind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

// SessionEvent is published whenever the browser's session changes.
type SessionEvent struct {
	Kind    Kind
	User    identity.User
	DraftID string // wizard draft bound to the browser, if any
}

type Handler func(ctx context.Context, ev SessionEvent)

// Bus fans session changes out to subscribers, synchronously and in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
}

func NewBus() *Bus {
	return &Bus{subs: map[int]Handler{}}
}

// Subscribe registers h and returns a func that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) Publish(ctx context.Context, ev SessionEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}
