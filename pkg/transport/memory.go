package transport

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Conn used by tests and by any embedder that
// wants to exercise the consumer without a running NATS server. Publish
// dispatches synchronously, on the caller's goroutine, to every subscriber
// registered for the exact subject at the time of the call.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string][]Handler
}

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]Handler)}
}

// Subscribe registers handler for subject. Unlike NATSConn, repeated
// subscriptions to the same subject each add a handler; callers that need
// the Subscription Manager's idempotent-subscribe guarantee get it from
// dafka.SubscriptionManager, not from this bus.
func (b *MemoryBus) Subscribe(subject string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[subject] = append(b.subs[subject], handler)
	return nil
}

// Publish calls every handler registered for subject, in registration
// order.
func (b *MemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	b.mu.Lock()
	handlers := append([]Handler(nil), b.subs[subject]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(Message{Subject: subject, Data: data})
	}
	return nil
}

// Close discards all subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]Handler)
	return nil
}
